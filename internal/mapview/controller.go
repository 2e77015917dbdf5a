// Package mapview drives an asset map: it owns the map view, the marker
// layer and the count label, and keeps them in step with filter submissions.
package mapview

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"

	"github.com/rs/zerolog"

	"assetmap/internal/assets"
)

var (
	ErrNoSource     = errors.New("mapview: asset source is required")
	ErrNoCountLabel = errors.New("mapview: count label element is required")

	// ErrSuperseded is returned by a load whose response arrived after a
	// newer load had started. The display is left to the newer load.
	ErrSuperseded = errors.New("mapview: load superseded by a newer request")
)

// Source fetches the assets matching a filter.
type Source interface {
	FetchAssets(ctx context.Context, params FilterParams) ([]assets.Asset, error)
}

// Label is the visible summary element.
type Label interface {
	SetText(text string)
}

// TextLabel is a Label that remembers the last text it was given.
type TextLabel struct {
	mu   sync.Mutex
	text string
}

func (l *TextLabel) SetText(text string) {
	l.mu.Lock()
	l.text = text
	l.mu.Unlock()
}

func (l *TextLabel) Text() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.text
}

type Options struct {
	// View defaults to DefaultView.
	View       View
	Source     Source
	CountLabel Label
	Log        zerolog.Logger
}

type Controller struct {
	log    zerolog.Logger
	view   View
	source Source
	label  Label
	layer  *MarkerLayer

	mu     sync.Mutex
	gen    uint64
	cancel context.CancelFunc
}

// New initializes the map view and an empty marker layer. It fails fast
// when a collaborator the controller cannot work without is missing.
func New(opts Options) (*Controller, error) {
	if opts.Source == nil {
		return nil, ErrNoSource
	}
	if opts.CountLabel == nil {
		return nil, ErrNoCountLabel
	}
	view := opts.View
	if view == (View{}) {
		view = DefaultView
	}
	return &Controller{
		log:    opts.Log,
		view:   view,
		source: opts.Source,
		label:  opts.CountLabel,
		layer:  &MarkerLayer{},
	}, nil
}

func (c *Controller) View() View { return c.view }

func (c *Controller) Layer() *MarkerLayer { return c.layer }

// Init performs the initial, unfiltered load.
func (c *Controller) Init(ctx context.Context) (int, error) {
	return c.LoadAssets(ctx, FilterParams{})
}

// Submit handles a filter form submission.
func (c *Controller) Submit(ctx context.Context, form url.Values) (int, error) {
	return c.LoadAssets(ctx, FilterParamsFromForm(form))
}

// LoadAssets fetches the assets matching params and redraws the layer.
//
// Starting a load cancels any load still in flight, and only the most
// recently started load may touch the display: an older response that
// resolves late is dropped with ErrSuperseded. On failure the layer is
// cleared and the label shows LoadErrorLabel.
func (c *Controller) LoadAssets(ctx context.Context, params FilterParams) (int, error) {
	c.mu.Lock()
	if c.cancel != nil {
		c.cancel()
	}
	c.gen++
	gen := c.gen
	loadCtx, cancel := context.WithCancel(ctx)
	c.cancel = cancel
	c.mu.Unlock()
	defer cancel()

	list, err := c.source.FetchAssets(loadCtx, params)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.log.Debug().Uint64("generation", gen).Uint64("current", c.gen).Msg("discarding superseded asset load")
		return 0, ErrSuperseded
	}
	c.cancel = nil

	if err != nil {
		c.layer.Clear()
		c.label.SetText(LoadErrorLabel)
		c.log.Warn().Err(err).Str("query", params.Encode()).Msg("asset load failed")
		return 0, fmt.Errorf("load assets: %w", err)
	}

	c.layer.Replace(BuildMarkers(list))
	c.label.SetText(CountLabel(len(list)))
	c.log.Debug().Int("count", len(list)).Str("query", params.Encode()).Msg("asset markers rendered")
	return len(list), nil
}
