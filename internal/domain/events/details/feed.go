package details

import (
	"errors"
	"fmt"
)

type FeedMethod string

const (
	FeedMethodBreast FeedMethod = "breast"
	FeedMethodBottle FeedMethod = "bottle"
)

type FeedSide string

const (
	FeedSideLeft  FeedSide = "left"
	FeedSideRight FeedSide = "right"
	FeedSideBoth  FeedSide = "both"
)

// Feed es el detalle de una toma (pecho o biberón).
type Feed struct {
	Method          FeedMethod `json:"method,omitempty"`
	AmountML        float64    `json:"amount_ml,omitempty"`
	Side            FeedSide   `json:"side,omitempty"`
	DurationMinutes float64    `json:"duration_minutes,omitempty"`
}

func (f Feed) Validate() error {
	if !finite(f.AmountML, f.DurationMinutes) {
		return fmt.Errorf("feed: %w", errNotFinite)
	}
	if f.AmountML < 0 || f.DurationMinutes < 0 {
		return errors.New("feed: negative amount or duration")
	}
	switch f.Method {
	case "", FeedMethodBreast, FeedMethodBottle:
	default:
		return errors.New("feed: unknown method")
	}
	switch f.Side {
	case "", FeedSideLeft, FeedSideRight, FeedSideBoth:
	default:
		return errors.New("feed: unknown side")
	}
	// Biberón se registra por volumen, pecho por lado.
	if f.AmountML == 0 && f.Side == "" {
		return errors.New("feed: amount_ml or side required")
	}
	return nil
}
