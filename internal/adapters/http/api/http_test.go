package api_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/pnlboard/pnlboard/internal/adapters/http/api"
	repository "github.com/pnlboard/pnlboard/internal/adapters/repository"
	"github.com/pnlboard/pnlboard/internal/domain/model"
	"github.com/pnlboard/pnlboard/internal/domain/timeframe"
	. "github.com/smartystreets/goconvey/convey"
)

// fakeDeps implements api.Dependencies and api.StatsProvider for handler tests.
type fakeDeps struct {
	enqueueOK bool
	enqueued  []model.PnlUpdate

	entries  []repository.Entry
	rankErr  error
	queryErr error
	count    int64
	stats    map[timeframe.Timeframe]repository.Stats

	removed []string
	cleared bool
}

func (d *fakeDeps) Enqueue(_ context.Context, u model.PnlUpdate) bool {
	if !d.enqueueOK {
		return false
	}
	d.enqueued = append(d.enqueued, u)
	return true
}

func (d *fakeDeps) TopN(_ context.Context, tf timeframe.Timeframe, n int) ([]repository.Entry, error) {
	if d.queryErr != nil {
		return nil, d.queryErr
	}
	if n < len(d.entries) {
		return d.entries[:n], nil
	}
	return d.entries, nil
}

func (d *fakeDeps) Rank(_ context.Context, wallet string, tf timeframe.Timeframe) (repository.Entry, error) {
	if d.rankErr != nil {
		return repository.Entry{}, d.rankErr
	}
	for _, e := range d.entries {
		if e.Wallet == wallet {
			return e, nil
		}
	}
	return repository.Entry{}, repository.ErrNotRanked
}

func (d *fakeDeps) RankRange(_ context.Context, tf timeframe.Timeframe, start, end int) ([]repository.Entry, error) {
	if d.queryErr != nil {
		return nil, d.queryErr
	}
	if end < start {
		return []repository.Entry{}, nil
	}
	return d.entries, nil
}

func (d *fakeDeps) Count(context.Context, timeframe.Timeframe) (int64, error) {
	if d.queryErr != nil {
		return 0, d.queryErr
	}
	return d.count, nil
}

func (d *fakeDeps) Stats(context.Context) (map[timeframe.Timeframe]repository.Stats, error) {
	if d.queryErr != nil {
		return nil, d.queryErr
	}
	return d.stats, nil
}

func (d *fakeDeps) RemoveWallet(_ context.Context, wallet string) error {
	if d.queryErr != nil {
		return d.queryErr
	}
	d.removed = append(d.removed, wallet)
	return nil
}

func (d *fakeDeps) ClearAll(context.Context) error {
	if d.queryErr != nil {
		return d.queryErr
	}
	d.cleared = true
	return nil
}

func (d *fakeDeps) GetStats() map[string]interface{} {
	return map[string]interface{}{"started": true}
}

func newTestMux(deps *fakeDeps) *http.ServeMux {
	mux := http.NewServeMux()
	api.NewServer(deps, deps, 100).Register(context.Background(), mux)
	return mux
}

func doRequest(mux *http.ServeMux, method, target, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	return rec
}

func TestPostUpdates(t *testing.T) {
	Convey("Given the updates endpoint", t, func() {
		deps := &fakeDeps{enqueueOK: true}
		mux := newTestMux(deps)

		Convey("When posting a single well-formed update", func() {
			rec := doRequest(mux, http.MethodPost, "/updates",
				`{"update_id":"u1","wallet":"0xabc","pnl_usd":12.5}`)

			Convey("Then it is accepted for async processing", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(deps.enqueued, ShouldHaveLength, 1)
				So(deps.enqueued[0].Wallet, ShouldEqual, "0xabc")
				So(deps.enqueued[0].PnlUSD, ShouldEqual, 12.5)
			})
		})

		Convey("When posting a batch of updates", func() {
			rec := doRequest(mux, http.MethodPost, "/updates",
				`[{"wallet":"0xaaa","pnl_usd":1},{"wallet":"0xbbb","pnl_usd":2}]`)

			Convey("Then every update is enqueued and counted", func() {
				So(rec.Code, ShouldEqual, http.StatusAccepted)
				So(deps.enqueued, ShouldHaveLength, 2)

				var ack map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &ack), ShouldBeNil)
				So(ack["accepted"], ShouldEqual, 2)
				So(ack["rejected"], ShouldEqual, 0)
			})
		})

		Convey("When the body is not JSON", func() {
			rec := doRequest(mux, http.MethodPost, "/updates", `not-json`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the wallet is missing", func() {
			rec := doRequest(mux, http.MethodPost, "/updates", `{"pnl_usd":1}`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the batch is empty", func() {
			rec := doRequest(mux, http.MethodPost, "/updates", `[]`)
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the queue reports backpressure", func() {
			deps.enqueueOK = false
			rec := doRequest(mux, http.MethodPost, "/updates",
				`{"wallet":"0xabc","pnl_usd":1}`)
			So(rec.Code, ShouldEqual, http.StatusTooManyRequests)
		})

		Convey("When using the wrong method", func() {
			rec := doRequest(mux, http.MethodGet, "/updates", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestGetLeaderboard(t *testing.T) {
	Convey("Given a populated leaderboard", t, func() {
		deps := &fakeDeps{
			entries: []repository.Entry{
				{Rank: 1, Wallet: "0xaaa", PnlUSD: 250, Period: timeframe.Day1},
				{Rank: 2, Wallet: "0xbbb", PnlUSD: 100.5, Period: timeframe.Day1},
			},
		}
		mux := newTestMux(deps)

		Convey("When requesting the top entries", func() {
			rec := doRequest(mux, http.MethodGet, "/leaderboard?timeframe=1d&limit=10", "")

			Convey("Then entries come back ranked", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var entries []map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &entries), ShouldBeNil)
				So(entries, ShouldHaveLength, 2)
				So(entries[0]["wallet"], ShouldEqual, "0xaaa")
				So(entries[0]["rank"], ShouldEqual, 1)
				So(entries[0]["timeframe"], ShouldEqual, "1d")
			})
		})

		Convey("When the timeframe is omitted", func() {
			rec := doRequest(mux, http.MethodGet, "/leaderboard?limit=10", "")
			So(rec.Code, ShouldEqual, http.StatusOK)
		})

		Convey("When the timeframe is unknown", func() {
			rec := doRequest(mux, http.MethodGet, "/leaderboard?timeframe=2w&limit=10", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit is missing or invalid", func() {
			So(doRequest(mux, http.MethodGet, "/leaderboard", "").Code, ShouldEqual, http.StatusBadRequest)
			So(doRequest(mux, http.MethodGet, "/leaderboard?limit=0", "").Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the limit exceeds the maximum", func() {
			rec := doRequest(mux, http.MethodGet, "/leaderboard?limit=101", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When the store fails", func() {
			deps.queryErr = errors.New("store down")
			rec := doRequest(mux, http.MethodGet, "/leaderboard?limit=10", "")
			So(rec.Code, ShouldEqual, http.StatusInternalServerError)
		})
	})
}

func TestGetRank(t *testing.T) {
	Convey("Given a ranked wallet", t, func() {
		deps := &fakeDeps{
			entries: []repository.Entry{
				{Rank: 3, Wallet: "0xabc", PnlUSD: 42, Period: timeframe.Day7},
			},
		}
		mux := newTestMux(deps)

		Convey("When requesting its rank", func() {
			rec := doRequest(mux, http.MethodGet, "/rank/0xabc?timeframe=7d", "")

			Convey("Then the entry is returned", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)

				var entry map[string]any
				So(json.Unmarshal(rec.Body.Bytes(), &entry), ShouldBeNil)
				So(entry["rank"], ShouldEqual, 3)
				So(entry["pnl_usd"], ShouldEqual, 42)
			})
		})

		Convey("When the wallet is not ranked", func() {
			rec := doRequest(mux, http.MethodGet, "/rank/0xzzz", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})

		Convey("When the store fails", func() {
			deps.rankErr = errors.New("store down")
			rec := doRequest(mux, http.MethodGet, "/rank/0xabc", "")

			Convey("Then the failure is not reported as not-ranked", func() {
				So(rec.Code, ShouldEqual, http.StatusInternalServerError)
			})
		})

		Convey("When the path has no wallet", func() {
			rec := doRequest(mux, http.MethodGet, "/rank/", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetRange(t *testing.T) {
	Convey("Given the range endpoint", t, func() {
		deps := &fakeDeps{
			entries: []repository.Entry{
				{Rank: 2, Wallet: "0xbbb", PnlUSD: 100, Period: timeframe.Day1},
				{Rank: 3, Wallet: "0xccc", PnlUSD: 50, Period: timeframe.Day1},
			},
		}
		mux := newTestMux(deps)

		Convey("When requesting a valid range", func() {
			rec := doRequest(mux, http.MethodGet, "/leaderboard/range?start=2&end=3", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var entries []map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &entries), ShouldBeNil)
			So(entries, ShouldHaveLength, 2)
		})

		Convey("When the range is inverted", func() {
			rec := doRequest(mux, http.MethodGet, "/leaderboard/range?start=5&end=2", "")

			Convey("Then the result is empty, not an error", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(strings.TrimSpace(rec.Body.String()), ShouldEqual, "[]")
			})
		})

		Convey("When bounds are missing", func() {
			So(doRequest(mux, http.MethodGet, "/leaderboard/range?start=1", "").Code, ShouldEqual, http.StatusBadRequest)
			So(doRequest(mux, http.MethodGet, "/leaderboard/range?end=5", "").Code, ShouldEqual, http.StatusBadRequest)
		})
	})
}

func TestGetSize(t *testing.T) {
	Convey("Given the size endpoint", t, func() {
		deps := &fakeDeps{count: 7}
		mux := newTestMux(deps)

		Convey("When requesting a board's size", func() {
			rec := doRequest(mux, http.MethodGet, "/leaderboard/size?timeframe=30d", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp map[string]any
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)
			So(resp["timeframe"], ShouldEqual, "30d")
			So(resp["count"], ShouldEqual, 7)
		})
	})
}

func TestGetStats(t *testing.T) {
	Convey("Given boards with mixed population", t, func() {
		top := 250.0
		bottom := 100.5
		avg := 175.25
		deps := &fakeDeps{
			stats: map[timeframe.Timeframe]repository.Stats{
				timeframe.Day1:  {TotalWallets: 2, TopPnl: &top, BottomPnl: &bottom, AveragePnl: &avg},
				timeframe.Day30: {},
			},
		}
		mux := newTestMux(deps)

		Convey("When requesting stats", func() {
			rec := doRequest(mux, http.MethodGet, "/stats", "")
			So(rec.Code, ShouldEqual, http.StatusOK)

			var resp struct {
				Boards map[string]struct {
					TotalWallets int64    `json:"total_wallets"`
					TopPnlUSD    *float64 `json:"top_pnl_usd"`
					AvgPnlUSD    *float64 `json:"avg_pnl_usd"`
				} `json:"boards"`
				Service map[string]any `json:"service"`
			}
			So(json.Unmarshal(rec.Body.Bytes(), &resp), ShouldBeNil)

			Convey("Then populated boards expose aggregates", func() {
				So(resp.Boards["1d"].TotalWallets, ShouldEqual, 2)
				So(*resp.Boards["1d"].TopPnlUSD, ShouldEqual, 250)
				So(*resp.Boards["1d"].AvgPnlUSD, ShouldEqual, 175.25)
			})

			Convey("And empty boards carry null aggregates", func() {
				So(resp.Boards["30d"].TotalWallets, ShouldEqual, 0)
				So(resp.Boards["30d"].TopPnlUSD, ShouldBeNil)
			})

			Convey("And service stats ride along", func() {
				So(resp.Service["started"], ShouldEqual, true)
			})
		})
	})
}

func TestDeleteWallet(t *testing.T) {
	Convey("Given the wallets endpoint", t, func() {
		deps := &fakeDeps{}
		mux := newTestMux(deps)

		Convey("When deleting a wallet", func() {
			rec := doRequest(mux, http.MethodDelete, "/wallets/0xabc", "")

			Convey("Then the wallet is removed from every board", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.removed, ShouldResemble, []string{"0xabc"})
			})
		})

		Convey("When the path has no wallet", func() {
			rec := doRequest(mux, http.MethodDelete, "/wallets/", "")
			So(rec.Code, ShouldEqual, http.StatusBadRequest)
		})

		Convey("When using the wrong method", func() {
			rec := doRequest(mux, http.MethodGet, "/wallets/0xabc", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}

func TestAdminClear(t *testing.T) {
	Convey("Given the admin clear endpoint", t, func() {
		deps := &fakeDeps{}
		mux := newTestMux(deps)

		Convey("When clearing all boards", func() {
			rec := doRequest(mux, http.MethodPost, "/admin/clear", "")

			Convey("Then the boards are dropped", func() {
				So(rec.Code, ShouldEqual, http.StatusOK)
				So(deps.cleared, ShouldBeTrue)
			})
		})

		Convey("When using the wrong method", func() {
			rec := doRequest(mux, http.MethodGet, "/admin/clear", "")
			So(rec.Code, ShouldEqual, http.StatusNotFound)
		})
	})
}
