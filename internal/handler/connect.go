// Package handler exposes RDP sessions over websocket: fast-path updates
// stream out as binary frames, inbound frames become fast-path input events.
package handler

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/umair-akbar/neutrino-rdp/internal/config"
	"github.com/umair-akbar/neutrino-rdp/internal/logging"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/fastpath"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/tpkt"
	"github.com/umair-akbar/neutrino-rdp/internal/protocol/x224"
	"github.com/umair-akbar/neutrino-rdp/internal/rdp"
	"github.com/umair-akbar/neutrino-rdp/internal/transport"
)

const (
	webSocketReadBufferSize  = 8192
	webSocketWriteBufferSize = 8192 * 2
)

// Gateway upgrades HTTP requests to websocket sessions and bridges each one
// to an RDP endpoint.
type Gateway struct {
	cfg *config.Config
}

// New returns a Gateway using cfg for transport and security settings.
func New(cfg *config.Config) *Gateway {
	return &Gateway{cfg: cfg}
}

// Connect is the websocket endpoint. The target RDP host comes from the
// "host" query parameter.
func (g *Gateway) Connect(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  webSocketReadBufferSize,
		WriteBufferSize: webSocketWriteBufferSize,
		CheckOrigin: func(r *http.Request) bool {
			return isAllowedOrigin(r.Header.Get("Origin"))
		},
	}

	wsConn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Error("handler: upgrade websocket: %v", err)

		return
	}

	defer func() {
		if err = wsConn.Close(); err != nil {
			logging.Debug("handler: close websocket: %v", err)
		}
	}()

	sessionID := uuid.NewString()

	host := r.URL.Query().Get("host")
	if host == "" {
		logging.Error("handler: session %s: missing host parameter", sessionID)

		return
	}

	if !strings.Contains(host, ":") {
		host += ":3389"
	}

	logging.Info("handler: session %s: connecting to %s", sessionID, host)

	if err = g.serve(r.Context(), wsConn, host, sessionID); err != nil {
		logging.Info("handler: session %s: closed: %v", sessionID, err)
	}
}

func (g *Gateway) serve(ctx context.Context, wsConn *websocket.Conn, host, sessionID string) error {
	tr, err := transport.Dial(host, g.cfg.RDP.Timeout)
	if err != nil {
		return fmt.Errorf("rdp dial: %w", err)
	}

	if err = negotiate(tr); err != nil {
		tr.Close() //nolint:errcheck

		return fmt.Errorf("rdp negotiate: %w", err)
	}

	sess := rdp.NewSession(rdp.RoleClient, tr,
		rdp.WithConnectSequence(&rdp.ClientConnectSequence{}),
		rdp.WithUpdateHandler(&updateForwarder{wsConn: wsConn}),
		rdp.WithSecurity(g.cfg.Security),
	)
	defer sess.Close() //nolint:errcheck

	group, ctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		defer wsConn.Close() //nolint:errcheck

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default: // pass
			}

			if err := sess.Recv(); err != nil {
				if errors.Is(err, rdp.ErrDisconnect) {
					return nil
				}

				return fmt.Errorf("rdp recv: %w", err)
			}
		}
	})

	group.Go(func() error {
		defer sess.Close() //nolint:errcheck

		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default: // pass
			}

			_, data, err := wsConn.ReadMessage()
			if err != nil {
				if websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					return nil
				}

				return fmt.Errorf("websocket read: %w", err)
			}

			if err = sess.SendInputEvent(data); err != nil {
				return fmt.Errorf("rdp input: %w", err)
			}
		}
	})

	return group.Wait()
}

// negotiate runs the X.224 connection handshake on a fresh transport.
func negotiate(tr *transport.TCP) error {
	st := tr.SendStreamInit(tpkt.HeaderLength + 7 + 8)
	tpkt.WriteHeader(st, tpkt.HeaderLength+7+8)
	x224.WriteConnectionRequest(st, x224.ProtocolRDP)
	st.Rewind()

	if err := tr.Write(st); err != nil {
		return err
	}

	confirm := tr.RecvStreamInit(64)
	if err := tr.Read(confirm); err != nil {
		return err
	}

	if _, err := tpkt.ReadHeader(confirm); err != nil {
		return err
	}

	selected, err := x224.ReadConnectionConfirm(confirm)
	if err != nil {
		return err
	}

	if selected != x224.ProtocolRDP {
		return fmt.Errorf("unsupported security protocol selected: 0x%08X", selected)
	}

	return nil
}

// updateForwarder relays reassembled fast-path updates to the browser, one
// binary frame per update, prefixed with the update code.
type updateForwarder struct {
	wsConn *websocket.Conn
}

func (f *updateForwarder) HandleUpdate(code fastpath.UpdateCode, data []byte) error {
	frame := make([]byte, 1+len(data))
	frame[0] = uint8(code)
	copy(frame[1:], data)

	if err := f.wsConn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
		return fmt.Errorf("websocket write: %w", err)
	}

	return nil
}

// isAllowedOrigin checks the websocket origin against the ALLOWED_ORIGINS
// environment list. Localhost origins are always accepted for development.
func isAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}

	normalized := strings.TrimPrefix(strings.TrimPrefix(origin, "http://"), "https://")
	normalized = strings.TrimSuffix(normalized, "/")

	if strings.HasPrefix(normalized, "localhost") || strings.HasPrefix(normalized, "127.0.0.1") {
		return true
	}

	for _, entry := range strings.Split(os.Getenv("ALLOWED_ORIGINS"), ",") {
		candidate := strings.TrimSpace(entry)
		if candidate == "" {
			continue
		}

		if candidate == origin || strings.TrimPrefix(strings.TrimPrefix(candidate, "http://"), "https://") == normalized {
			return true
		}
	}

	return false
}
