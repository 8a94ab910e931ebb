package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/angelmondragon/baystatus/internal/catalog"
	"github.com/angelmondragon/baystatus/pkg/enums"
)

type recordingReplacer struct {
	calls []enums.PartType
	ids   []int
	parts [][]catalog.Part
}

func (r *recordingReplacer) ReplaceParts(_ context.Context, id int, partType enums.PartType, parts []catalog.Part) error {
	r.calls = append(r.calls, partType)
	r.ids = append(r.ids, id)
	r.parts = append(r.parts, parts)
	return nil
}

func writeSnapshot(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "parts.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write snapshot: %v", err)
	}
	return path
}

func TestSeedCatalogReplacesEachGroup(t *testing.T) {
	path := writeSnapshot(t, `[
		{"vehicleToEngineConfigId":312,"partType":"oil_filter","parts":[{"id":1,"part":"PH7317","notes":[{"id":1,"value":"Spin-on"}],"qualifier":"","type":"OIL_FILTER"}]},
		{"vehicleToEngineConfigId":312,"partType":"AIR_FILTER","parts":[]}
	]`)
	repo := &recordingReplacer{}

	count, err := seedCatalog(context.Background(), repo, path, nil)
	if err != nil {
		t.Fatalf("seedCatalog: %v", err)
	}
	if count != 2 || len(repo.calls) != 2 {
		t.Fatalf("expected 2 groups, got %d (%d calls)", count, len(repo.calls))
	}
	if repo.calls[0] != enums.PartTypeOilFilter || repo.ids[0] != 312 || repo.parts[0][0].Part != "PH7317" {
		t.Fatalf("unexpected first group %v %v %+v", repo.calls[0], repo.ids[0], repo.parts[0])
	}
}

func TestSeedCatalogRejectsUnknownPartType(t *testing.T) {
	path := writeSnapshot(t, `[{"vehicleToEngineConfigId":1,"partType":"WIPER","parts":[]}]`)
	if _, err := seedCatalog(context.Background(), &recordingReplacer{}, path, nil); err == nil {
		t.Fatalf("expected error for unknown part type")
	}
}

func TestSeedCatalogEvictsEachReplacedGroup(t *testing.T) {
	path := writeSnapshot(t, `[
		{"vehicleToEngineConfigId":111,"partType":"CABIN_AIR_FILTER","parts":[]},
		{"vehicleToEngineConfigId":222,"partType":"OIL_FILTER","parts":[]}
	]`)

	var evicted []string
	evict := func(_ context.Context, id int, partType enums.PartType) {
		evicted = append(evicted, fmt.Sprintf("%d/%s", id, partType))
	}
	if _, err := seedCatalog(context.Background(), &recordingReplacer{}, path, evict); err != nil {
		t.Fatalf("seedCatalog: %v", err)
	}
	if strings.Join(evicted, ",") != "111/CABIN_AIR_FILTER,222/OIL_FILTER" {
		t.Fatalf("unexpected evictions %v", evicted)
	}
}
