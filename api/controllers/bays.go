package controllers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/angelmondragon/baystatus/api/responses"
	"github.com/angelmondragon/baystatus/internal/baystatus"
	"github.com/angelmondragon/baystatus/internal/baystatus/widgets"
	"github.com/angelmondragon/baystatus/pkg/enums"
	pkgerrors "github.com/angelmondragon/baystatus/pkg/errors"
	"github.com/angelmondragon/baystatus/pkg/logger"
)

// BayDirectory resolves configured bay pages.
type BayDirectory interface {
	BayIDs() []string
	Get(bayID string) (*baystatus.Page, bool)
}

type baySummary struct {
	BayID         string          `json:"bayId"`
	LastEventID   string          `json:"lastEventId,omitempty"`
	LastEventType enums.EventType `json:"lastEventType,omitempty"`
	LastEventTime string          `json:"lastEventTime,omitempty"`
	Subscribers   int             `json:"subscribers"`
}

func ListBays(dir BayDirectory) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ids := dir.BayIDs()
		out := make([]baySummary, 0, len(ids))
		for _, id := range ids {
			page, ok := dir.Get(id)
			if !ok {
				continue
			}
			summary := baySummary{
				BayID:       id,
				Subscribers: page.Distributor().SubscriberCount(),
			}
			if event, ok := page.Status(); ok {
				summary.LastEventID = event.EventID
				summary.LastEventType = event.EventType
				summary.LastEventTime = event.EventTime
			}
			out = append(out, summary)
		}
		responses.WriteSuccess(w, out)
	}
}

// BayStatus returns the latest store event distributed for the bay.
func BayStatus(dir BayDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromRequest(dir, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		event, ok := page.Status()
		if !ok {
			responses.WriteError(r.Context(), logg, w,
				pkgerrors.Newf(pkgerrors.CodeNotFound, "no store event received for bay %s", page.BayID()))
			return
		}
		responses.WriteSuccess(w, event)
	}
}

type widgetsResponse struct {
	BayID   string          `json:"bayId"`
	Widgets []widgets.State `json:"widgets"`
}

func BayWidgets(dir BayDirectory, logg *logger.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		page, err := pageFromRequest(dir, r)
		if err != nil {
			responses.WriteError(r.Context(), logg, w, err)
			return
		}
		responses.WriteSuccess(w, widgetsResponse{BayID: page.BayID(), Widgets: page.Widgets()})
	}
}

func pageFromRequest(dir BayDirectory, r *http.Request) (*baystatus.Page, error) {
	bayID := chi.URLParam(r, "bayId")
	page, ok := dir.Get(bayID)
	if !ok {
		return nil, pkgerrors.Newf(pkgerrors.CodeNotFound, "bay %s is not configured", bayID)
	}
	return page, nil
}
