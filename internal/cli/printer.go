package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
	"github.com/gosuri/uitable"

	"care-ledger/internal/domain/events"
	"care-ledger/internal/domain/prediction"
	"care-ledger/internal/domain/syncer"
)

const timeLayout = "2006-01-02 15:04"

// metadataColWidth trunca columnas largas (la metadata) en la tabla.
const metadataColWidth = 60

// OutputOptions
type OutputOptions struct {
	JSON bool
}

type printer struct {
	out  io.Writer
	json bool
}

func (p printer) Event(e events.CareEvent) error {
	raw, err := events.EncodeMetadata(e.Metadata)
	if err != nil {
		return err
	}
	if p.json {
		return p.encode(eventJSON(e, raw))
	}
	id := color.New(color.Faint)
	_, _ = id.Fprintf(p.out, "%s  ", e.ID)
	_, _ = typeColor(e.Type).Fprintf(p.out, "%-10s", e.Type)
	_, _ = fmt.Fprintf(p.out, " %s  %s\n", e.Timestamp.Local().Format(timeLayout), raw)
	return nil
}

func (p printer) Events(evs []events.CareEvent) error {
	if p.json {
		out := make([]eventView, 0, len(evs))
		for _, e := range evs {
			raw, err := events.EncodeMetadata(e.Metadata)
			if err != nil {
				return err
			}
			out = append(out, eventJSON(e, raw))
		}
		return p.encode(out)
	}
	if len(evs) == 0 {
		_, _ = color.New(color.Faint, color.Italic).Fprintln(p.out, " none")
		return nil
	}

	tbl := uitable.New()
	tbl.MaxColWidth = metadataColWidth
	tbl.Separator = "  "
	tbl.AddRow("ID", "TYPE", "WHEN", "SYNCED", "METADATA")
	for _, e := range evs {
		raw, err := events.EncodeMetadata(e.Metadata)
		if err != nil {
			return err
		}
		synced := "no"
		if e.IsSynced {
			synced = "yes"
		}
		tbl.AddRow(e.ID, e.Type, e.Timestamp.Local().Format(timeLayout), synced, string(raw))
	}
	_, err := fmt.Fprintln(p.out, tbl)
	return err
}

func (p printer) Forecast(f prediction.Forecast, now time.Time) error {
	if p.json {
		return p.encode(forecastView{
			AwakeWindowMinutes: f.AwakeWindowMinutes,
			Pressure:           f.Pressure,
			Zone:               f.Zone,
			NextWindow:         f.NextWindow,
			LastSleep:          f.LastSleep,
			ComputedAt:         now,
		})
	}

	_, _ = fmt.Fprintf(p.out, "pressure  %.2f ", f.Pressure)
	_, _ = zoneColor(f.Zone).Fprintln(p.out, f.Zone)
	if f.LastSleep == nil {
		_, _ = color.New(color.Faint, color.Italic).Fprintln(p.out, "no sleep logged yet")
		return nil
	}
	_, _ = fmt.Fprintf(p.out, "last nap  %s\n", f.LastSleep.Local().Format(timeLayout))
	if f.NextWindow != nil {
		_, _ = fmt.Fprintf(p.out, "next nap  %s (window %.0f min)\n", f.NextWindow.Local().Format(timeLayout), f.AwakeWindowMinutes)
	}
	return nil
}

func (p printer) SyncResult(res syncer.Result) error {
	if p.json {
		return p.encode(res)
	}
	_, _ = fmt.Fprintf(p.out, "synced %d  deleted %d  ", res.Synced, res.Deleted)
	failed := color.New()
	if res.Failed > 0 {
		failed = color.New(color.FgRed, color.Bold)
	}
	_, _ = failed.Fprintf(p.out, "failed %d", res.Failed)
	_, _ = fmt.Fprintf(p.out, "  skipped %d\n", res.Skipped)
	for _, err := range res.Failures {
		_, _ = color.New(color.FgRed).Fprintf(p.out, "  %v\n", err)
	}
	return nil
}

func (p printer) encode(v any) error {
	enc := json.NewEncoder(p.out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

type eventView struct {
	ID         string           `json:"id"`
	ActorID    string           `json:"actor_id"`
	Type       events.EventType `json:"type"`
	Timestamp  time.Time        `json:"timestamp"`
	RecordedAt time.Time        `json:"recorded_at"`
	Metadata   json.RawMessage  `json:"metadata"`
	IsSynced   bool             `json:"is_synced"`
}

func eventJSON(e events.CareEvent, raw json.RawMessage) eventView {
	return eventView{
		ID:         e.ID,
		ActorID:    e.ActorID,
		Type:       e.Type,
		Timestamp:  e.Timestamp,
		RecordedAt: e.RecordedAt,
		Metadata:   raw,
		IsSynced:   e.IsSynced,
	}
}

type forecastView struct {
	AwakeWindowMinutes float64         `json:"awake_window_minutes"`
	Pressure           float64         `json:"pressure"`
	Zone               prediction.Zone `json:"zone"`
	NextWindow         *time.Time      `json:"next_window,omitempty"`
	LastSleep          *time.Time      `json:"last_sleep,omitempty"`
	ComputedAt         time.Time       `json:"computed_at"`
}

func typeColor(t events.EventType) *color.Color {
	switch t {
	case events.EventTypeFeed:
		return color.New(color.FgHiBlue)
	case events.EventTypeSleep:
		return color.New(color.FgHiMagenta)
	case events.EventTypeDiaper:
		return color.New(color.FgHiYellow)
	case events.EventTypeMedication:
		return color.New(color.FgHiRed)
	default:
		return color.New(color.FgHiGreen)
	}
}

func zoneColor(z prediction.Zone) *color.Color {
	switch z {
	case prediction.ZoneCalm:
		return color.New(color.FgGreen, color.Bold)
	case prediction.ZoneBuilding:
		return color.New(color.FgYellow, color.Bold)
	case prediction.ZoneSweetSpot:
		return color.New(color.FgHiMagenta, color.Bold)
	default:
		return color.New(color.FgRed, color.Bold)
	}
}
