package sessions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/deltabar/market"
)

var nyc = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		panic(err)
	}
	return loc
}()

// localBar builds a bar whose close time is the given NY-local clock.
func localBar(day time.Time, hour, min int, high, low float64) market.Bar {
	local := time.Date(day.Year(), day.Month(), day.Day(), hour, min, 0, 0, nyc)
	return market.Bar{
		Open: (high + low) / 2, High: high, Low: low, Close: (high + low) / 2,
		Volume: 100,
		Time:   local.UTC(),
	}
}

var monday = time.Date(2024, 6, 3, 0, 0, 0, 0, nyc)

func TestTrackerWindows(t *testing.T) {
	t.Run("bars land in the right session", func(t *testing.T) {
		tr := NewTracker(nyc, nil)
		tr.Update(localBar(monday, 10, 0, 5010, 5000)) // regular hours
		tr.Update(localBar(monday, 5, 0, 4990, 4980))  // pre-market
		tr.Update(localBar(monday, 19, 0, 5020, 5015)) // overnight

		assert.True(t, tr.Current(PriorDay).Valid)
		assert.Equal(t, 5010.0, tr.Current(PriorDay).High)
		assert.True(t, tr.Current(Morning).Valid)
		assert.Equal(t, 4980.0, tr.Current(Morning).Low)
		assert.True(t, tr.Current(Overnight).Valid)
	})

	t.Run("bar outside all windows updates nothing", func(t *testing.T) {
		tr := NewTracker(nyc, nil)
		tr.Update(localBar(monday, 16, 30, 5010, 5000)) // 16:30: between RTH close and overnight open
		assert.False(t, tr.Current(PriorDay).Valid)
		assert.False(t, tr.Current(Overnight).Valid)
		assert.False(t, tr.Current(Morning).Valid)
	})

	t.Run("overnight crosses midnight", func(t *testing.T) {
		tr := NewTracker(nyc, nil)
		tr.Update(localBar(monday, 23, 59, 5010, 5000))
		tuesday := monday.AddDate(0, 0, 1)
		tr.Update(localBar(tuesday, 3, 30, 5030, 5020))

		// the midnight crossing rotated the date, so Monday's overnight
		// half is archived and Tuesday's is running
		on := tr.Current(Overnight)
		assert.True(t, on.Valid)
		assert.Equal(t, 5030.0, on.High)
		require.Len(t, tr.History(), 1)
		assert.Equal(t, Overnight, tr.History()[0].Type)
		assert.Equal(t, 5010.0, tr.History()[0].High)
	})

	t.Run("high and low are monotone within a session", func(t *testing.T) {
		tr := NewTracker(nyc, nil)
		tr.Update(localBar(monday, 10, 0, 5010, 5000))
		tr.Update(localBar(monday, 10, 1, 5005, 5002)) // inside bar changes nothing
		assert.Equal(t, 5010.0, tr.Current(PriorDay).High)
		assert.Equal(t, 5000.0, tr.Current(PriorDay).Low)

		tr.Update(localBar(monday, 10, 2, 5015, 4995))
		assert.Equal(t, 5015.0, tr.Current(PriorDay).High)
		assert.Equal(t, 4995.0, tr.Current(PriorDay).Low)
	})
}

func TestTrackerRotation(t *testing.T) {
	t.Run("date change archives valid sessions and resets", func(t *testing.T) {
		tr := NewTracker(nyc, nil)
		tr.Update(localBar(monday, 10, 0, 5010, 5000))
		tr.Update(localBar(monday, 5, 0, 4990, 4980))

		tuesday := monday.AddDate(0, 0, 1)
		tr.Update(localBar(tuesday, 10, 0, 5050, 5040))

		hist := tr.History()
		require.Len(t, hist, 2)
		assert.False(t, tr.Current(Morning).Valid)
		assert.Equal(t, 5050.0, tr.Current(PriorDay).High)
		assert.Equal(t, monday.Format("2006-01-02"), hist[0].Date.Format("2006-01-02"))
	})

	t.Run("history is bounded", func(t *testing.T) {
		tr := NewTracker(nyc, nil)
		day := monday
		for i := 0; i < 40; i++ {
			tr.Update(localBar(day, 10, 0, 5000+float64(i), 4990+float64(i)))
			day = day.AddDate(0, 0, 1)
		}
		assert.LessOrEqual(t, len(tr.History()), historyCap)
	})
}

func TestSelectTakeProfit(t *testing.T) {
	const tick = 0.25

	setup := func() *Tracker {
		tr := NewTracker(nyc, nil)
		tr.Update(localBar(monday, 10, 0, 5030, 4960)) // prior-day 5030/4960
		tr.Update(localBar(monday, 5, 0, 5010, 4980))  // morning 5010/4980
		tr.Update(localBar(monday, 19, 0, 5050, 4940)) // overnight 5050/4940
		return tr
	}

	t.Run("nearest level beyond price wins", func(t *testing.T) {
		tr := setup()
		tp := tr.SelectTakeProfit(5000, market.Long, 4, 40, tick)
		assert.Equal(t, 5010.0, tp.Price) // morning high is nearest above
		assert.Equal(t, "morning", tp.Source)

		tp = tr.SelectTakeProfit(5000, market.Short, 4, 40, tick)
		assert.Equal(t, 4980.0, tp.Price)
	})

	t.Run("too-close level skipped for next nearest", func(t *testing.T) {
		tr := setup()
		// morning high 5010 is 2 ticks away: below the 20-tick minimum,
		// so the prior-day high is used instead
		tp := tr.SelectTakeProfit(5009.5, market.Long, 20, 40, tick)
		assert.Equal(t, 5030.0, tp.Price)
	})

	t.Run("no qualifying level falls back to offset", func(t *testing.T) {
		tr := setup()
		// above every session high
		tp := tr.SelectTakeProfit(5100, market.Long, 4, 40, tick)
		assert.Equal(t, "offset", tp.Source)
		assert.InDelta(t, 5100+40*tick, tp.Price, 0.001)

		tp = tr.SelectTakeProfit(4900, market.Short, 4, 40, tick)
		assert.InDelta(t, 4900-40*tick, tp.Price, 0.001)
	})

	t.Run("empty tracker uses offset directly", func(t *testing.T) {
		tr := NewTracker(nyc, nil)
		tp := tr.SelectTakeProfit(5000, market.Long, 4, 40, tick)
		assert.Equal(t, "offset", tp.Source)
	})

	t.Run("minimum distance property holds", func(t *testing.T) {
		tr := setup()
		for _, price := range []float64{4965, 5000, 5008, 5029, 5049.75} {
			tp := tr.SelectTakeProfit(price, market.Long, 8, 40, tick)
			if tp.Source != "offset" {
				assert.GreaterOrEqual(t, tp.Price-price, 8*tick,
					"price %.2f selected level %.2f", price, tp.Price)
			}
		}
	})

	t.Run("archived levels back-fill sparse current sessions", func(t *testing.T) {
		tr := NewTracker(nyc, nil)
		tr.Update(localBar(monday, 10, 0, 5030, 4960))
		tuesday := monday.AddDate(0, 0, 1)
		tr.Update(localBar(tuesday, 10, 0, 5005, 4990)) // rotation: Monday archived

		// only one current session is valid, so Monday's archived high
		// must be available as a target
		tp := tr.SelectTakeProfit(5010, market.Long, 4, 40, tick)
		assert.Equal(t, 5030.0, tp.Price)
		assert.Equal(t, "history", tp.Source)
	})
}
