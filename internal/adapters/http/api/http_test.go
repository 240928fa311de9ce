package api_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/scalehouse/weighbridge/internal/adapters/http/api"
	"github.com/scalehouse/weighbridge/internal/adapters/repository"
	sap "github.com/scalehouse/weighbridge/internal/adapters/sap"
	service "github.com/scalehouse/weighbridge/internal/app"
	"github.com/scalehouse/weighbridge/internal/domain/model"
	. "github.com/smartystreets/goconvey/convey"
)

// stubDeps scripts the controller surface for handler tests.
type stubDeps struct {
	status    service.Status
	weighing  model.Weighing
	weighings []model.Weighing
	pair      model.Pair
	err       error
	notes     map[int64]string
	lastTruck string
	lastLimit int
	cleared   bool
}

func (s *stubDeps) SetTruckContext(_ context.Context, truckNumber, transporter, product string) error {
	if s.err != nil {
		return s.err
	}
	s.lastTruck = truckNumber
	s.status.State = service.StateAwaitingEntry
	s.status.TruckNumber = truckNumber
	return nil
}

func (s *stubDeps) ClearSession() {
	s.cleared = true
	s.status = service.Status{State: service.StateIdle, Message: "ready"}
}

func (s *stubDeps) CaptureEntry(context.Context) (model.Weighing, error) {
	return s.weighing, s.err
}

func (s *stubDeps) CaptureExit(context.Context) (model.Weighing, error) {
	return s.weighing, s.err
}

func (s *stubDeps) SendLatest(context.Context) (model.Weighing, error) {
	return s.weighing, s.err
}

func (s *stubDeps) Recent(_ context.Context, limit int) ([]model.Weighing, error) {
	s.lastLimit = limit
	return s.weighings, s.err
}

func (s *stubDeps) Get(_ context.Context, id int64) (model.Weighing, error) {
	if s.err != nil {
		return model.Weighing{}, s.err
	}
	w := s.weighing
	w.ID = id
	if n, ok := s.notes[id]; ok {
		w.Notes = n
	}
	return w, nil
}

func (s *stubDeps) PairFor(_ context.Context, truckNumber string) (model.Pair, error) {
	s.lastTruck = truckNumber
	return s.pair, s.err
}

func (s *stubDeps) UpdateNotes(_ context.Context, id int64, notes string) error {
	if s.err != nil {
		return s.err
	}
	if s.notes == nil {
		s.notes = make(map[int64]string)
	}
	s.notes[id] = notes
	return nil
}

func (s *stubDeps) Status() service.Status { return s.status }

func newTestServer(deps api.Dependencies) *httptest.Server {
	mux := http.NewServeMux()
	api.NewServer(deps).Register(context.Background(), mux)
	return httptest.NewServer(mux)
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req, err := http.NewRequest(method, url, reader)
	So(err, ShouldBeNil)
	resp, err := http.DefaultClient.Do(req)
	So(err, ShouldBeNil)
	defer resp.Body.Close()

	var decoded map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&decoded)
	return resp, decoded
}

func TestAPI_Session(t *testing.T) {
	Convey("Given the API over a stub controller", t, func() {
		deps := &stubDeps{status: service.Status{State: service.StateIdle, Message: "ready"}}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When a session starts with a truck number", func() {
			resp, body := do(t, http.MethodPost, srv.URL+"/session",
				`{"truck_number":"TRK-001","transporter":"Haulers Ltd","product":"Gravel"}`)

			Convey("Then the snapshot comes back with 201", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				So(body["truck_number"], ShouldEqual, "TRK-001")
				So(deps.lastTruck, ShouldEqual, "TRK-001")
			})
		})

		Convey("When the truck number is missing", func() {
			resp, body := do(t, http.MethodPost, srv.URL+"/session", `{"transporter":"Haulers Ltd"}`)

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When the body is not JSON", func() {
			resp, _ := do(t, http.MethodPost, srv.URL+"/session", `not json`)

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the session is cleared", func() {
			resp, body := do(t, http.MethodDelete, srv.URL+"/session", "")

			Convey("Then the controller resets", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(deps.cleared, ShouldBeTrue)
				So(body["state"], ShouldEqual, string(service.StateIdle))
			})
		})
	})
}

func TestAPI_Capture(t *testing.T) {
	Convey("Given the API over a stub controller", t, func() {
		deps := &stubDeps{
			weighing: model.Weighing{ID: 1, TruckNumber: "TRK-001", Weight: 12000, Kind: model.KindEntry},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When an entry capture succeeds", func() {
			resp, body := do(t, http.MethodPost, srv.URL+"/capture/entry", "")

			Convey("Then the weighing comes back with 201", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusCreated)
				So(body["truck_number"], ShouldEqual, "TRK-001")
				So(body["weight"], ShouldEqual, 12000)
			})
		})

		Convey("When the scale has not settled", func() {
			deps.err = service.ErrNoStableReading
			resp, body := do(t, http.MethodPost, srv.URL+"/capture/exit", "")

			Convey("Then the conflict is reported", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
				So(body["code"], ShouldEqual, "scale_not_settled")
			})
		})

		Convey("When no truck context is set", func() {
			deps.err = service.ErrNoTruckContext
			resp, body := do(t, http.MethodPost, srv.URL+"/capture/entry", "")

			Convey("Then the conflict is reported", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
				So(body["code"], ShouldEqual, "no_truck_context")
			})
		})
	})
}

func TestAPI_Sync(t *testing.T) {
	Convey("Given the API over a stub controller", t, func() {
		deps := &stubDeps{
			weighing: model.Weighing{ID: 3, TruckNumber: "TRK-001", Submitted: true, SAPDocument: "DOC-0001"},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When the latest weighing is sent", func() {
			resp, body := do(t, http.MethodPost, srv.URL+"/sync/latest", "")

			Convey("Then the submitted weighing comes back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["sap_document"], ShouldEqual, "DOC-0001")
				So(body["submitted"], ShouldEqual, true)
			})
		})

		Convey("When it was already sent", func() {
			deps.err = service.ErrAlreadySent
			resp, body := do(t, http.MethodPost, srv.URL+"/sync/latest", "")

			Convey("Then a conflict is reported", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusConflict)
				So(body["code"], ShouldEqual, "already_sent")
			})
		})

		Convey("When SAP is down", func() {
			deps.err = sap.ErrNotConnected
			resp, body := do(t, http.MethodPost, srv.URL+"/sync/latest", "")

			Convey("Then the service is unavailable", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusServiceUnavailable)
				So(body["code"], ShouldEqual, "not_connected")
			})
		})
	})
}

func TestAPI_Weighings(t *testing.T) {
	Convey("Given the API over a stub controller", t, func() {
		now := time.Date(2024, 5, 14, 8, 0, 0, 0, time.UTC)
		deps := &stubDeps{
			weighing: model.Weighing{ID: 2, TruckNumber: "TRK-001", Weight: 38000, Kind: model.KindExit},
			weighings: []model.Weighing{
				{ID: 2, Timestamp: now.Add(15 * time.Minute), TruckNumber: "TRK-001", Weight: 38000, Kind: model.KindExit},
				{ID: 1, Timestamp: now, TruckNumber: "TRK-001", Weight: 12000, Kind: model.KindEntry},
			},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When listing weighings", func() {
			resp, err := http.Get(srv.URL + "/weighings?limit=5")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			var rows []model.Weighing
			So(json.NewDecoder(resp.Body).Decode(&rows), ShouldBeNil)

			Convey("Then the rows come back newest first", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(len(rows), ShouldEqual, 2)
				So(rows[0].ID, ShouldEqual, 2)
				So(deps.lastLimit, ShouldEqual, 5)
			})
		})

		Convey("When the limit is malformed", func() {
			resp, body := do(t, http.MethodGet, srv.URL+"/weighings?limit=many", "")

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
				So(body["code"], ShouldEqual, "bad_request")
			})
		})

		Convey("When fetching one weighing", func() {
			resp, body := do(t, http.MethodGet, srv.URL+"/weighings/2", "")

			Convey("Then it comes back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["id"], ShouldEqual, 2)
			})
		})

		Convey("When the id is not an integer", func() {
			resp, _ := do(t, http.MethodGet, srv.URL+"/weighings/two", "")

			Convey("Then the request is rejected", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusBadRequest)
			})
		})

		Convey("When the id is unknown", func() {
			deps.err = repository.ErrNotFound
			resp, body := do(t, http.MethodGet, srv.URL+"/weighings/99", "")

			Convey("Then 404 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(body["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When notes are updated", func() {
			resp, body := do(t, http.MethodPatch, srv.URL+"/weighings/2/notes", `{"notes":"axle 3 overloaded"}`)

			Convey("Then the updated weighing comes back", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["notes"], ShouldEqual, "axle 3 overloaded")
			})
		})
	})
}

func TestAPI_PairAndStatus(t *testing.T) {
	Convey("Given the API over a stub controller", t, func() {
		now := time.Date(2024, 5, 14, 8, 0, 0, 0, time.UTC)
		exit := model.Weighing{ID: 2, Timestamp: now.Add(15 * time.Minute), TruckNumber: "TRK-001", Weight: 38000, Kind: model.KindExit}
		deps := &stubDeps{
			pair: model.Pair{
				Entry: model.Weighing{ID: 1, Timestamp: now, TruckNumber: "TRK-001", Weight: 12000, Kind: model.KindEntry},
				Exit:  &exit,
			},
			status: service.Status{State: service.StateIdle, ScaleConnected: true, Message: "ready"},
		}
		srv := newTestServer(deps)
		defer srv.Close()

		Convey("When fetching the pair", func() {
			resp, body := do(t, http.MethodGet, srv.URL+"/pair/TRK-001", "")

			Convey("Then the derived fields are flattened in", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["net_weight"], ShouldEqual, 26000)
				So(body["duration_ms"], ShouldEqual, float64(15*time.Minute/time.Millisecond))
				So(body["is_complete"], ShouldEqual, true)
				So(deps.lastTruck, ShouldEqual, "TRK-001")
			})
		})

		Convey("When the truck has no pair", func() {
			deps.err = repository.ErrNotFound
			resp, body := do(t, http.MethodGet, srv.URL+"/pair/TRK-404", "")

			Convey("Then 404 is returned", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusNotFound)
				So(body["code"], ShouldEqual, "not_found")
			})
		})

		Convey("When fetching status", func() {
			resp, body := do(t, http.MethodGet, srv.URL+"/status", "")

			Convey("Then the snapshot is served", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
				So(body["state"], ShouldEqual, string(service.StateIdle))
				So(body["scale_connected"], ShouldEqual, true)
			})
		})

		Convey("When probing health", func() {
			resp, err := http.Get(srv.URL + "/healthz")
			So(err, ShouldBeNil)
			defer resp.Body.Close()

			Convey("Then the metrics endpoint answers", func() {
				So(resp.StatusCode, ShouldEqual, http.StatusOK)
			})
		})
	})
}
