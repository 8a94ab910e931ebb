package widgets

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/baystatus/pkg/enums"
	pkgerrors "github.com/angelmondragon/baystatus/pkg/errors"
)

const DefaultLocale = "en"

type messageSet struct {
	failed   string
	notFound string
}

var partLabels = map[string]map[enums.PartType]string{
	"en": {
		enums.PartTypeAirFilter:       "air filter",
		enums.PartTypeCabinAirFilter:  "cabin air filter",
		enums.PartTypeOilFilter:       "oil filter",
		enums.PartTypeOilFilterChange: "oil change",
	},
	"es": {
		enums.PartTypeAirFilter:       "filtro de aire",
		enums.PartTypeCabinAirFilter:  "filtro de aire de cabina",
		enums.PartTypeOilFilter:       "filtro de aceite",
		enums.PartTypeOilFilterChange: "cambio de aceite",
	},
	"fr": {
		enums.PartTypeAirFilter:       "filtre à air",
		enums.PartTypeCabinAirFilter:  "filtre d'habitacle",
		enums.PartTypeOilFilter:       "filtre à huile",
		enums.PartTypeOilFilterChange: "vidange",
	},
}

var templates = map[string]messageSet{
	"en": {failed: "Unable to load %s details.", notFound: "No %s found for this vehicle."},
	"es": {failed: "No se pudo cargar la información del %s.", notFound: "No se encontró %s para este vehículo."},
	"fr": {failed: "Impossible de charger les informations du %s.", notFound: "Aucun %s trouvé pour ce véhicule."},
}

// normalizeLocale reduces "es-MX" to "es" and falls back to DefaultLocale.
func normalizeLocale(locale string) string {
	lang := strings.ToLower(strings.TrimSpace(locale))
	if i := strings.IndexAny(lang, "-_"); i > 0 {
		lang = lang[:i]
	}
	if _, ok := templates[lang]; !ok {
		return DefaultLocale
	}
	return lang
}

func errorMessage(locale string, partType enums.PartType, err error) string {
	lang := normalizeLocale(locale)
	label, ok := partLabels[lang][partType]
	if !ok {
		label = strings.ToLower(strings.ReplaceAll(partType.String(), "_", " "))
	}
	tmpl := templates[lang].failed
	if pkgerrors.IsCode(err, pkgerrors.CodeNotFound) {
		tmpl = templates[lang].notFound
	}
	return fmt.Sprintf(tmpl, label)
}
