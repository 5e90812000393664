package gatewayclient

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"

	"vectorportal/internal/adapter/gatewayapi"
	"vectorportal/internal/domain"
)

// maxFrameSize caps a single event frame.
const maxFrameSize = 1 << 20

// Watch streams gateway events to handle until ctx is cancelled or the
// gateway closes the stream. A clean shutdown returns nil.
func (c *Client) Watch(ctx context.Context, handle func(domain.Event)) error {
	wsURL := "ws" + strings.TrimPrefix(c.baseURL, "http") + gatewayapi.EventsPath
	opts := &websocket.DialOptions{HTTPHeader: http.Header{}}
	if c.token != "" {
		opts.HTTPHeader.Set("Authorization", "Bearer "+c.token)
	}
	opts.HTTPHeader.Set("User-Agent", c.userAgent)

	conn, resp, err := websocket.Dial(ctx, wsURL, opts)
	if err != nil {
		if resp != nil && resp.StatusCode == http.StatusUnauthorized {
			return fmt.Errorf("%w: event stream: %v", domain.ErrGatewayAuthFailed, err)
		}
		return fmt.Errorf("%w: event stream: %v", domain.ErrProviderError, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "")
	conn.SetReadLimit(maxFrameSize)

	c.logger.Debug("event stream connected", "url", wsURL)
	for {
		var frame gatewayapi.Frame
		if err := wsjson.Read(ctx, conn, &frame); err != nil {
			switch {
			case ctx.Err() != nil:
				return nil
			case websocket.CloseStatus(err) == websocket.StatusNormalClosure,
				websocket.CloseStatus(err) == websocket.StatusGoingAway:
				return nil
			}
			return fmt.Errorf("%w: event stream: %v", domain.ErrProviderError, err)
		}
		if frame.Type == gatewayapi.FrameTypeEvent {
			handle(frame.Payload)
		}
	}
}

