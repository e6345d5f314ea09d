package crawler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeRecordStore struct {
	inserted []string
}

func (f *fakeRecordStore) InsertCrawledIfAbsent(dataType string, day time.Time, value decimal.Decimal, raw string) (bool, error) {
	f.inserted = append(f.inserted, dataType)
	return true, nil
}

func TestSupervisor_RunsDueSourceAndPersistsRecords(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("11.793K BTC"))
	}))
	defer srv.Close()

	st := &fakeRecordStore{}
	sup := NewSupervisor(NewBrowserPool(""), st, zerolog.Nop())
	sup.Register(&Source{
		ID:       "etf_ibit",
		Name:     "ibit_holdings",
		URL:      srv.URL,
		Interval: time.Minute,
		Spider:   &EtfHoldingsSpider{Entity: "blackrock"},
	})

	require.NoError(t, sup.CheckAndRun(context.Background()))
	require.Contains(t, st.inserted, "blackrock_holdings_btc")
}

func TestSupervisor_SkipsSourceNotYetDue(t *testing.T) {
	st := &fakeRecordStore{}
	sup := NewSupervisor(NewBrowserPool(""), st, zerolog.Nop())
	src := &Source{ID: "x", Name: "x", URL: "http://unused", Interval: time.Hour, Spider: &GenericMetricSpider{}}
	src.lastRunAt = time.Now()
	sup.Register(src)

	require.NoError(t, sup.CheckAndRun(context.Background()))
	require.Empty(t, st.inserted)
}

func TestSupervisor_SkipsSourceAlreadyRunning(t *testing.T) {
	st := &fakeRecordStore{}
	sup := NewSupervisor(NewBrowserPool(""), st, zerolog.Nop())
	sup.running["busy"] = true
	sup.Register(&Source{ID: "busy", Name: "busy", URL: "http://unused", Interval: time.Minute, Spider: &GenericMetricSpider{}})

	due := sup.dueSources()
	require.Empty(t, due)
}
