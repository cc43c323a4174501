package handler

import (
	"encoding/json"
	"net/http"
	"reflect"
	"testing"

	"github.com/martijn/harvestd/internal/api/dto"
)

func TestConfigPassthrough(t *testing.T) {
	env := setupTestEnv(t, "true")

	w := env.makeRequest(t, "/config")
	if w.Code != http.StatusOK || w.Body.String() != "{}" {
		t.Fatalf("expected an empty object before any write, got %d %s", w.Code, w.Body.String())
	}

	body := `{"KEYWORDS_GEO":["გზა"],"PAGES":3}`
	w = env.doRequest(t, http.MethodPut, "/config", []byte(body))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}

	var got, want map[string]interface{}
	parseJSON(t, env.makeRequest(t, "/config"), &got)
	_ = json.Unmarshal([]byte(body), &want)
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}

	for _, bad := range []string{`[1,2,3]`, `not json`} {
		w = env.doRequest(t, http.MethodPut, "/config", []byte(bad))
		if w.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d", bad, w.Code)
		}
	}
}

func TestKeywords(t *testing.T) {
	env := setupTestEnv(t, "true")

	var resp dto.KeywordsResponse
	parseJSON(t, env.makeRequest(t, "/keywords"), &resp)
	if resp.Keywords == nil || len(resp.Keywords) != 0 {
		t.Fatalf("expected an empty list, got %v", resp.Keywords)
	}

	w := env.doRequest(t, http.MethodPut, "/keywords", []byte(`{"keywords":["ხიდი"," გზა ",""]}`))
	if w.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d. Body: %s", w.Code, w.Body.String())
	}
	parseJSON(t, w, &resp)
	if !reflect.DeepEqual(resp.Keywords, []string{"ხიდი", "გზა"}) {
		t.Errorf("unexpected keywords %v", resp.Keywords)
	}

	if w := env.doRequest(t, http.MethodPut, "/keywords", []byte(`{}`)); w.Code != http.StatusBadRequest {
		t.Errorf("expected status 400 without keywords, got %d", w.Code)
	}
}
