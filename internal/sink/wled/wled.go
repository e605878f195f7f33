// Package wled pushes frames to WLED controllers over the JSON state API.
package wled

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/coreman2200/cheevolights/internal/render"
)

const (
	DefaultTimeout      = 300 * time.Millisecond
	DefaultSolidTimeout = time.Second
	// DriverName is the sink route for networked WLED devices.
	DriverName = "wled"
)

type stateFrame struct {
	On  bool     `json:"on"`
	Seg segFrame `json:"seg"`
}

type segFrame struct {
	I render.Frame `json:"i"`
}

type stateSolid struct {
	On  bool       `json:"on"`
	Seg []segSolid `json:"seg"`
}

type segSolid struct {
	Col []render.Color `json:"col"`
	FX  int            `json:"fx"`
	SX  int            `json:"sx"`
	IX  int            `json:"ix"`
}

// Client sends one POST per device per frame. It never retries and never
// returns transport errors to the caller.
type Client struct {
	client       *http.Client
	timeout      time.Duration
	solidTimeout time.Duration
}

func New(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client:       &http.Client{},
		timeout:      timeout,
		solidTimeout: DefaultSolidTimeout,
	}
}

func stateURL(addr string) string { return "http://" + addr + "/json/state" }

// Send posts {"on":true,"seg":{"i":[[r,g,b],...]}} to the device.
func (c *Client) Send(ctx context.Context, dev render.Device, f render.Frame) {
	if f == nil {
		f = render.Frame{}
	}
	if err := c.post(ctx, dev.Addr, c.timeout, stateFrame{On: true, Seg: segFrame{I: f}}); err != nil {
		log.Debug().Err(err).Str("addr", dev.Addr).Msg("frame dropped")
	}
}

// SetSolid switches the device back to a static single-color segment.
func (c *Client) SetSolid(ctx context.Context, dev render.Device, col render.Color) {
	body := stateSolid{On: true, Seg: []segSolid{{Col: []render.Color{col}, FX: 0, SX: 128, IX: 128}}}
	if err := c.post(ctx, dev.Addr, c.solidTimeout, body); err != nil {
		log.Debug().Err(err).Str("addr", dev.Addr).Msg("set solid failed")
	}
}

// Restore sets col on every WLED device concurrently and waits for all of them.
func (c *Client) Restore(ctx context.Context, devices []render.Device, col render.Color) {
	var wg sync.WaitGroup
	for _, dev := range devices {
		if dev.Driver != "" && dev.Driver != DriverName {
			continue
		}
		wg.Add(1)
		go func(dev render.Device) {
			defer wg.Done()
			c.SetSolid(ctx, dev, col)
		}(dev)
	}
	wg.Wait()
}

func (c *Client) post(ctx context.Context, addr string, timeout time.Duration, body any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return errors.Wrap(err, "encode state")
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, stateURL(addr), bytes.NewReader(b))
	if err != nil {
		return errors.Wrap(err, "build request")
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return errors.Wrap(err, "post state")
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return errors.Errorf("wled returned %d", resp.StatusCode)
	}
	return nil
}
