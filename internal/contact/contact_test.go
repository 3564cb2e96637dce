package contact

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/ziadkadry99/folio/internal/db"
	"github.com/ziadkadry99/folio/internal/dom"
	"github.com/ziadkadry99/folio/internal/logging"
)

func setupStore(t *testing.T) *Store {
	t.Helper()
	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })
	return NewStore(database)
}

func setupServer(t *testing.T) (*httptest.Server, *Store) {
	t.Helper()
	store := setupStore(t)
	r := chi.NewRouter()
	RegisterRoutes(r, store, logging.Discard())
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, store
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		sub     Submission
		wantErr bool
	}{
		{"valid", Submission{"Ada", "ada@example.com", "Hello"}, false},
		{"no name", Submission{"", "ada@example.com", "Hello"}, true},
		{"no email", Submission{"Ada", "", "Hello"}, true},
		{"bad email", Submission{"Ada", "not-an-address", "Hello"}, true},
		{"no message", Submission{"Ada", "ada@example.com", ""}, true},
		{"long message", Submission{"Ada", "ada@example.com", strings.Repeat("x", maxMessageLen+1)}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.sub.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalid) {
				t.Errorf("error %v does not wrap ErrInvalid", err)
			}
		})
	}
}

func TestSaveAndList(t *testing.T) {
	store := setupStore(t)
	ctx := context.Background()

	m, err := store.Save(ctx, Submission{Name: "  Ada ", Email: "ada@example.com", Message: "Hi"}, "10.0.0.1:5000")
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if m.ID == "" || m.Name != "Ada" {
		t.Errorf("saved message = %+v", m)
	}
	if _, err := store.Save(ctx, Submission{Name: "Bob", Email: "bob@example.com", Message: "Yo"}, ""); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Get(ctx, m.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Email != "ada@example.com" || got.RemoteAddr != "10.0.0.1:5000" {
		t.Errorf("Get = %+v", got)
	}

	msgs, err := store.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(msgs) != 2 || msgs[0].Name != "Bob" {
		t.Errorf("List = %+v, want Bob first", msgs)
	}
	if msgs, _ := store.List(ctx, 1); len(msgs) != 1 {
		t.Errorf("List(1) returned %d", len(msgs))
	}

	if _, err := store.Get(ctx, "nope"); err == nil {
		t.Error("Get unknown id returned no error")
	}
}

func TestRoutes(t *testing.T) {
	srv, _ := setupServer(t)

	body, _ := json.Marshal(Submission{Name: "Ada", Email: "ada@example.com", Message: "Hi"})
	resp, err := http.Post(srv.URL+"/api/contact/", "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("POST status = %d, want 201", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/contact/", "application/json", strings.NewReader(`{"name":"x"}`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnprocessableEntity {
		t.Errorf("invalid POST status = %d, want 422", resp.StatusCode)
	}

	resp, err = http.Post(srv.URL+"/api/contact/", "application/json", strings.NewReader(`{`))
	if err != nil {
		t.Fatalf("POST: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("malformed POST status = %d, want 400", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/contact/")
	if err != nil {
		t.Fatalf("GET: %v", err)
	}
	defer resp.Body.Close()
	var msgs []Message
	if err := json.NewDecoder(resp.Body).Decode(&msgs); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(msgs) != 1 || msgs[0].Name != "Ada" {
		t.Errorf("GET = %+v", msgs)
	}
}

const formPage = `<form id="contact-form" action="/api/contact/">
<input name="name"><input name="email" type="email"><textarea name="message"></textarea>
<p id="form-status"></p>
</form>`

func TestFormSubmit(t *testing.T) {
	srv, store := setupServer(t)
	doc, err := dom.ParseString(formPage)
	if err != nil {
		t.Fatal(err)
	}
	form := Bind(doc, "", logging.Discard())
	if form == nil {
		t.Fatal("Bind found no form")
	}
	if got := form.Action(""); got != "/api/contact/" {
		t.Errorf("Action = %q", got)
	}

	form.Fill(Submission{Name: "Ada", Email: "ada@example.com", Message: "Hello there"})
	if v := form.Values(); v.Message != "Hello there" || v.Email != "ada@example.com" {
		t.Fatalf("Values = %+v", v)
	}

	rc, err := form.Submit(context.Background(), NewSubmitter(srv.URL+form.Action(""), nil))
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if rc.ID == "" || form.State() != "sent" {
		t.Errorf("receipt=%+v state=%q", rc, form.State())
	}
	if v := form.Values(); v.Name != "" {
		t.Errorf("form not cleared: %+v", v)
	}
	if msgs, _ := store.List(context.Background(), 0); len(msgs) != 1 {
		t.Errorf("stored %d messages, want 1", len(msgs))
	}
}

func TestFormSubmitFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "down", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	doc, _ := dom.ParseString(formPage)
	form := Bind(doc, "", logging.Discard())
	form.Fill(Submission{Name: "Ada", Email: "ada@example.com", Message: "Hi"})

	if _, err := form.Submit(context.Background(), NewSubmitter(srv.URL, nil)); err == nil {
		t.Fatal("Submit succeeded against failing backend")
	}
	if form.State() != "error" {
		t.Errorf("state = %q, want error", form.State())
	}
	if v := form.Values(); v.Name != "Ada" {
		t.Error("failed submission cleared the form")
	}
}

func TestBindWithoutForm(t *testing.T) {
	doc, _ := dom.ParseString(`<p>no form</p>`)
	if Bind(doc, "", nil) != nil {
		t.Error("Bind returned a form for a page without one")
	}
}
