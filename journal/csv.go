package journal

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
)

// CSV writes day summaries to one file and session levels alongside it
// with a .sessions.csv suffix.
type CSV struct {
	days     *csv.Writer
	sessions *csv.Writer
	df, sf   *os.File
}

func NewCSV(summaryPath string) (*CSV, error) {
	df, err := os.Create(summaryPath)
	if err != nil {
		return nil, err
	}
	sf, err := os.Create(summaryPath + ".sessions.csv")
	if err != nil {
		df.Close()
		return nil, err
	}

	dw := csv.NewWriter(df)
	sw := csv.NewWriter(sf)

	writeHeaders := func() error {
		if err := dw.Write([]string{"date", "window", "realized_pnl", "unrealized_pnl", "trade_count", "win_count", "loss_count", "order_count", "max_drawdown", "max_profit", "halted", "halt_reason"}); err != nil {
			return err
		}
		if err := sw.Write([]string{"date", "session", "high", "low", "bar_count"}); err != nil {
			return err
		}
		dw.Flush()
		if err := dw.Error(); err != nil {
			return err
		}
		sw.Flush()
		return sw.Error()
	}
	if err := writeHeaders(); err != nil {
		df.Close()
		sf.Close()
		return nil, err
	}

	return &CSV{dw, sw, df, sf}, nil
}

func (j *CSV) RecordDay(d DaySummary) error {
	err := j.days.Write([]string{
		d.Date,
		d.Window,
		f(d.RealizedPnL),
		f(d.UnrealizedPnL),
		strconv.Itoa(d.TradeCount),
		strconv.Itoa(d.WinCount),
		strconv.Itoa(d.LossCount),
		strconv.Itoa(d.OrderCount),
		f(d.MaxDrawdown),
		f(d.MaxProfit),
		strconv.FormatBool(d.Halted),
		d.HaltReason,
	})
	if err != nil {
		return err
	}
	j.days.Flush()
	return j.days.Error()
}

func (j *CSV) RecordSession(s SessionLevel) error {
	err := j.sessions.Write([]string{
		s.Date,
		s.Session,
		f(s.High),
		f(s.Low),
		strconv.Itoa(s.BarCount),
	})
	if err != nil {
		return err
	}
	j.sessions.Flush()
	return j.sessions.Error()
}

func (j *CSV) Close() error {
	j.days.Flush()
	if err := j.days.Error(); err != nil {
		return err
	}
	j.sessions.Flush()
	if err := j.sessions.Error(); err != nil {
		return err
	}
	if err := j.df.Close(); err != nil {
		return err
	}
	return j.sf.Close()
}

func f(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
