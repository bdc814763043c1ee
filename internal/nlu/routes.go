package nlu

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
)

// RegisterRoutes mounts NLU endpoints on the given router. rules may be nil
// when training persistence is disabled.
func RegisterRoutes(r chi.Router, classifier *Classifier, rules *RuleStore) {
	r.Get("/api/nlu/rules", listRulesHandler(classifier))
	r.Post("/api/nlu/rules", trainRuleHandler(classifier, rules))
	r.Post("/api/nlu/classify", classifyHandler(classifier))
}

func listRulesHandler(classifier *Classifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		out := classifier.CustomRules()
		if out == nil {
			out = []Rule{}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

func trainRuleHandler(classifier *Classifier, rules *RuleStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var rule Rule
		if err := json.NewDecoder(r.Body).Decode(&rule); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}
		if rule.Phrase == "" {
			http.Error(w, "phrase is required", http.StatusBadRequest)
			return
		}
		if !ValidIntent(rule.Intent) {
			http.Error(w, "unknown intent type", http.StatusBadRequest)
			return
		}

		classifier.AddCustomIntent(rule.Phrase, rule.Intent)
		if rules != nil {
			if err := rules.Save(r.Context(), rule); err != nil {
				http.Error(w, err.Error(), http.StatusInternalServerError)
				return
			}
		}
		writeJSON(w, http.StatusCreated, rule)
	}
}

// classifyRequest is the body of a classification probe.
type classifyRequest struct {
	Text string `json:"text"`
}

type classifyResponse struct {
	Matched    bool       `json:"matched"`
	Type       IntentType `json:"type,omitempty"`
	SubService string     `json:"sub_service,omitempty"`
}

func classifyHandler(classifier *Classifier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req classifyRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid request body", http.StatusBadRequest)
			return
		}

		intent, ok := classifier.Classify(req.Text)
		resp := classifyResponse{Matched: ok}
		if ok {
			resp.Type = intent.Type
			resp.SubService = intent.SubService
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
