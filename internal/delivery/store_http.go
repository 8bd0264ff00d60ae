package delivery

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"

	"github.com/khangtgr/assessly/internal/answer"
	"github.com/khangtgr/assessly/internal/integrity"
	"github.com/khangtgr/assessly/internal/model"
)

// HTTPStore implements Store over the engine's REST surface, making the
// session usable as a headless client against a running service.
type HTTPStore struct {
	baseURL string
	client  *http.Client
}

// NewHTTPStore builds a store client for the given API base URL, e.g.
// "http://localhost:8080/api/v1".
func NewHTTPStore(baseURL string, client *http.Client) *HTTPStore {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &HTTPStore{baseURL: baseURL, client: client}
}

type attemptStatePayload struct {
	Status           model.AttemptStatus `json:"status"`
	StartedAt        time.Time           `json:"started_at"`
	DurationMinutes  int                 `json:"duration_minutes"`
	BlueprintID      string              `json:"blueprint_id"`
	RemainingSeconds int                 `json:"remaining_seconds"`
}

type questionsPayload struct {
	Sections []struct {
		ID          string            `json:"id"`
		Type        model.SectionType `json:"type"`
		Title       string            `json:"title"`
		TimeMinutes int               `json:"time_minutes"`
		Items       []struct {
			ID          string           `json:"id"`
			Format      model.ItemFormat `json:"format"`
			Stem        string           `json:"stem"`
			Options     []string         `json:"options"`
			MaxPoints   int              `json:"max_points"`
			TimeSeconds *int             `json:"time_seconds,omitempty"`
		} `json:"items"`
	} `json:"sections"`
	Responses map[string]struct {
		Seq   int64           `json:"seq"`
		Value json.RawMessage `json:"value"`
	} `json:"responses"`
}

func (s *HTTPStore) Attempt(ctx context.Context, attemptID uuid.UUID) (AttemptInfo, error) {
	var payload attemptStatePayload
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("/attempts/%s", attemptID), nil, &payload); err != nil {
		return AttemptInfo{}, err
	}
	return AttemptInfo{
		Status:          payload.Status,
		StartedAt:       payload.StartedAt,
		DurationMinutes: payload.DurationMinutes,
		BlueprintID:     payload.BlueprintID,
	}, nil
}

func (s *HTTPStore) Questions(ctx context.Context, attemptID uuid.UUID) ([]SectionView, map[string]SavedAnswer, error) {
	var payload questionsPayload
	if err := s.do(ctx, http.MethodGet, fmt.Sprintf("/attempts/%s/questions", attemptID), nil, &payload); err != nil {
		return nil, nil, err
	}

	sections := make([]SectionView, 0, len(payload.Sections))
	itemIndex := make(map[string]ItemView)
	for _, sec := range payload.Sections {
		view := SectionView{ID: sec.ID, Type: sec.Type, Title: sec.Title, TimeMinutes: sec.TimeMinutes}
		for _, it := range sec.Items {
			item := ItemView{
				ID:          it.ID,
				Format:      it.Format,
				Stem:        it.Stem,
				Options:     it.Options,
				MaxPoints:   it.MaxPoints,
				TimeSeconds: it.TimeSeconds,
			}
			view.Items = append(view.Items, item)
			itemIndex[it.ID] = item
		}
		sections = append(sections, view)
	}

	saved := make(map[string]SavedAnswer, len(payload.Responses))
	for itemID, stored := range payload.Responses {
		item, ok := itemIndex[itemID]
		if !ok {
			continue
		}
		resp, err := answer.Decode(item.Format, stored.Value, item.Options)
		if err != nil {
			// A malformed saved response never wedges the load; the item
			// simply shows as unanswered.
			continue
		}
		saved[itemID] = SavedAnswer{Seq: stored.Seq, Response: resp}
	}
	return sections, saved, nil
}

func (s *HTTPStore) SaveResponse(ctx context.Context, attemptID uuid.UUID, itemID string, seq int64, resp answer.Response) error {
	wire, err := answer.Encode(resp)
	if err != nil {
		return err
	}
	body := map[string]interface{}{"seq": seq, "value": json.RawMessage(wire)}
	return s.do(ctx, http.MethodPut, fmt.Sprintf("/attempts/%s/responses/%s", attemptID, itemID), body, nil)
}

func (s *HTTPStore) PublishIntegrityEvent(ctx context.Context, event integrity.Event) error {
	body := map[string]interface{}{
		"type":        event.Type,
		"occurred_at": event.OccurredAt,
	}
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/attempts/%s/events", event.AttemptID), body, nil)
}

func (s *HTTPStore) Submit(ctx context.Context, attemptID uuid.UUID, req SubmitRequest) error {
	body := map[string]interface{}{
		"time_spent_seconds": req.TimeSpentSeconds,
		"fullscreen_exits":   req.FullscreenExits,
		"tab_switches":       req.TabSwitches,
	}
	return s.do(ctx, http.MethodPost, fmt.Sprintf("/attempts/%s/submit", attemptID), body, nil)
}

func (s *HTTPStore) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return err
		}
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		if out == nil {
			return nil
		}
		return json.NewDecoder(resp.Body).Decode(out)
	case resp.StatusCode == http.StatusConflict:
		return model.ErrStaleAttempt
	case resp.StatusCode == http.StatusNotFound:
		return model.ErrAttemptNotFound
	default:
		return fmt.Errorf("%s %s: unexpected status %d", method, path, resp.StatusCode)
	}
}
