package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/linnemanlabs/carepath/internal/decision"
	"github.com/linnemanlabs/carepath/internal/intake"
	"github.com/linnemanlabs/carepath/internal/labs"
	"github.com/linnemanlabs/carepath/internal/rx"
	"github.com/linnemanlabs/carepath/internal/validate"
)

type skipRequest struct {
	Severity bool `json:"severity"`
	Duration bool `json:"duration"`
	Age      bool `json:"age"`
}

type turnRequest struct {
	SessionID     string        `json:"sessionId"`
	UserID        string        `json:"userId"`
	Text          string        `json:"text"`
	Severity      *int          `json:"severity"`
	DurationHours *float64      `json:"durationHours"`
	AgeYears      *int          `json:"ageYears"`
	SexAtBirth    *decision.Sex `json:"sexAtBirth"`
	Pregnant      *bool         `json:"pregnant"`
	Skip          *skipRequest  `json:"skip"`
}

// turn converts the wire request into explicit answers plus free text.
func (t turnRequest) turn() intake.Turn {
	var answers []intake.Answer
	if t.Severity != nil {
		answers = append(answers, intake.SeverityAnswer{Value: *t.Severity})
	}
	if t.DurationHours != nil {
		answers = append(answers, intake.DurationAnswer{Hours: *t.DurationHours})
	}
	if t.AgeYears != nil {
		answers = append(answers, intake.AgeAnswer{Years: *t.AgeYears})
	}
	if t.SexAtBirth != nil {
		answers = append(answers, intake.SexAnswer{Sex: *t.SexAtBirth})
	}
	if t.Pregnant != nil {
		answers = append(answers, intake.PregnancyAnswer{Pregnant: *t.Pregnant})
	}
	if t.Skip != nil {
		if t.Skip.Severity {
			answers = append(answers, intake.SkipAnswer{Slot: intake.SlotSeverity})
		}
		if t.Skip.Duration {
			answers = append(answers, intake.SkipAnswer{Slot: intake.SlotDuration})
		}
		if t.Skip.Age {
			answers = append(answers, intake.SkipAnswer{Slot: intake.SlotAge})
		}
	}
	return intake.Turn{Answers: answers, Text: t.Text}
}

func (a *API) handleTurn(w http.ResponseWriter, r *http.Request) {
	var req turnRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	res, err := a.deps.Intake.HandleTurn(r.Context(), req.SessionID, req.UserID, req.turn())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleClearSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	trace.SpanFromContext(r.Context()).SetAttributes(attribute.String("session.id", id))

	if err := a.deps.Intake.Clear(r.Context(), id); err != nil {
		a.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *API) handleDecide(w http.ResponseWriter, r *http.Request) {
	var in decision.Input
	if err := decode(r, &in); err != nil {
		a.fail(w, r, err)
		return
	}

	v, err := a.deps.Decider.Decide(r.Context(), in)
	if err != nil {
		a.fail(w, r, err)
		return
	}
	trace.SpanFromContext(r.Context()).SetAttributes(
		attribute.String("triage.system_action", string(v.SystemAction)),
		attribute.String("triage.urgency_tier", string(v.UrgencyTier)),
	)
	writeJSON(w, http.StatusOK, v)
}

// rxRequest mirrors rx.Request with pregnancy status required on the wire.
type rxRequest struct {
	CurrentMeds []string `json:"currentMeds"`
	Candidate   string   `json:"newPrescription"`
	Pregnant    *bool    `json:"pregnant"`
}

func (a *API) handleRxCheck(w http.ResponseWriter, r *http.Request) {
	var req rxRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}
	if len(req.CurrentMeds) == 0 && req.Candidate == "" {
		a.fail(w, r, validate.Errorf("currentMeds", "at least one medication is required"))
		return
	}
	if req.Pregnant == nil {
		a.fail(w, r, validate.Errorf("pregnant", "required"))
		return
	}

	writeJSON(w, http.StatusOK, a.deps.Rx.Check(r.Context(), rx.Request{
		CurrentMeds: req.CurrentMeds,
		Candidate:   req.Candidate,
		Pregnant:    *req.Pregnant,
	}))
}

type extractRequest struct {
	Text string `json:"text"`
}

func (a *API) handleExtract(w http.ResponseWriter, r *http.Request) {
	var req extractRequest
	if err := decode(r, &req); err != nil {
		a.fail(w, r, err)
		return
	}

	res := labs.Extract(req.Text)
	if a.hooks.OnLabValues != nil {
		counts := make(map[labs.Flag]int)
		for _, v := range res.Values {
			counts[v.Flag]++
		}
		for flag, n := range counts {
			a.hooks.OnLabValues(string(flag), n)
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleSweep(w http.ResponseWriter, r *http.Request) {
	res, err := a.deps.Sessions.Sweep(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (a *API) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := a.deps.Sessions.Stats(r.Context())
	if err != nil {
		a.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}
