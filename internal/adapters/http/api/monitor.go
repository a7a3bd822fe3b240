package api

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/okian/songlab/internal/adapters/audio"
	"github.com/okian/songlab/internal/domain/model"
	"github.com/okian/songlab/internal/domain/monitor"
	"github.com/okian/songlab/internal/domain/session"
	"github.com/okian/songlab/pkg/logger"
	"github.com/okian/songlab/pkg/metrics"
)

const (
	wsReadLimit  = 1 << 20
	wsWriteWait  = 5 * time.Second
	wsCloseGrace = time.Second
)

// monitorMessage is pushed to websocket clients.
type monitorMessage struct {
	SessionID string                `json:"sessionId"`
	Stage     session.Stage         `json:"stage"`
	Snapshot  model.QualitySnapshot `json:"snapshot"`
	Error     string                `json:"error,omitempty"`
}

// MonitorHandler streams live quality snapshots over a websocket. Clients
// send binary frames of mono PCM16LE; each connection gets its own monitor.
type MonitorHandler struct {
	cfg      MonitorConfig
	upgrader websocket.Upgrader
	log      logger.Logger

	wg     sync.WaitGroup
	active atomic.Int64
}

// NewMonitorHandler creates a websocket monitor handler.
func NewMonitorHandler(cfg MonitorConfig, l logger.Logger) *MonitorHandler {
	if l == nil {
		l = logger.Discard()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = monitor.DefaultTickInterval
	}
	if cfg.WindowSize <= 0 {
		cfg.WindowSize = monitor.DefaultWindowSize
	}
	if cfg.PublishInterval <= 0 {
		cfg.PublishInterval = defaultPublishInterval
	}
	return &MonitorHandler{
		cfg: cfg,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		log: l.Named("monitor"),
	}
}

// Active is the number of connections currently being monitored.
func (h *MonitorHandler) Active() int64 {
	return h.active.Load()
}

// Wait blocks until every open monitor connection has finished.
func (h *MonitorHandler) Wait() {
	h.wg.Wait()
}

// HandleMonitor handles GET /v1/monitor websocket upgrades.
func (h *MonitorHandler) HandleMonitor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.NotFound(w, r)
		return
	}
	h.wg.Add(1)
	defer h.wg.Done()

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied with an HTTP error.
		h.log.Warn(r.Context(), "websocket upgrade failed", logger.Error(err))
		return
	}

	h.active.Add(1)
	defer h.active.Add(-1)
	metrics.UpdateWebsocketConnections(1)
	defer metrics.UpdateWebsocketConnections(-1)

	h.serve(r.Context(), conn)
}

func (h *MonitorHandler) serve(parent context.Context, conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(parent)
	defer cancel()
	defer conn.Close()

	store := session.New(uuid.NewString())
	pub := newPublisher()
	unsubscribe := store.Subscribe(pub.offer)
	defer unsubscribe()

	buf := audio.NewWindowBuffer(h.cfg.WindowSize)
	mon := monitor.New(
		monitor.WithCalibration(h.cfg.Calibration),
		monitor.WithTickInterval(h.cfg.TickInterval),
		monitor.WithWindowSize(h.cfg.WindowSize),
		monitor.WithLogger(h.log),
		monitor.WithListener(func(s model.QualitySnapshot) {
			recordSnapshot(s)
			store.SetSnapshot(s)
		}),
	)

	src := monitor.SourceFunc(func(context.Context) (monitor.Stream, error) { return buf, nil })
	if err := mon.Start(ctx, src); err != nil {
		metrics.RecordMonitorStartFailure(monitor.FailureKind(err))
		store.Fail(err)
		h.writeFinal(conn, store.State())
		return
	}
	metrics.UpdateMonitorsActive(1)
	defer metrics.UpdateMonitorsActive(-1)
	h.log.Debug(ctx, "monitor session started", logger.String("session", store.State().ID))

	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		h.writeLoop(ctx, conn, pub)
	}()
	// Unblock readLoop when the server context ends.
	stopRead := context.AfterFunc(ctx, func() {
		_ = conn.SetReadDeadline(time.Now())
	})
	defer stopRead()

	readErr := h.readLoop(conn, buf)
	buf.CloseWithError(nil)
	cancel()
	<-writerDone
	if err := mon.Stop(); err != nil {
		h.log.Warn(parent, "monitor stop failed", logger.Error(err))
	}
	if readErr != nil {
		h.log.Debug(parent, "monitor connection closed", logger.Error(readErr))
	}
	h.writeFinal(conn, store.State())
}

// readLoop feeds binary frames into buf until the client goes away.
func (h *MonitorHandler) readLoop(conn *websocket.Conn, buf *audio.WindowBuffer) error {
	conn.SetReadLimit(wsReadLimit)
	for {
		kind, data, err := conn.ReadMessage()
		if err != nil {
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				return nil
			}
			return err
		}
		if kind != websocket.BinaryMessage {
			continue
		}
		if _, err := buf.WritePCM16(data); err != nil {
			return err
		}
	}
}

// writeLoop pushes the newest state at most once per publish interval.
func (h *MonitorHandler) writeLoop(ctx context.Context, conn *websocket.Conn, pub *publisher) {
	ticker := time.NewTicker(h.cfg.PublishInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			st, ok := pub.take()
			if !ok {
				continue
			}
			_ = conn.SetWriteDeadline(time.Now().Add(wsWriteWait))
			if err := conn.WriteJSON(toMessage(st)); err != nil {
				h.log.Debug(ctx, "websocket write failed", logger.Error(err))
				return
			}
		}
	}
}

func (h *MonitorHandler) writeFinal(conn *websocket.Conn, st session.State) {
	_ = conn.SetWriteDeadline(time.Now().Add(wsCloseGrace))
	_ = conn.WriteJSON(toMessage(st))
	_ = conn.WriteControl(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(wsCloseGrace))
}

func toMessage(st session.State) monitorMessage {
	return monitorMessage{
		SessionID: st.ID,
		Stage:     st.Stage,
		Snapshot:  st.Snapshot,
		Error:     st.Error,
	}
}

func recordSnapshot(s model.QualitySnapshot) {
	metrics.RecordMonitorTick()
	metrics.RecordMonitorQuality(string(s.Quality))
	if s.SNRDB != nil {
		metrics.RecordMonitorSNR(*s.SNRDB)
	}
}

// publisher keeps only the newest session state between publishes.
type publisher struct {
	mu      sync.Mutex
	latest  session.State
	pending bool
}

func newPublisher() *publisher {
	return &publisher{}
}

func (p *publisher) offer(st session.State) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.latest = st
	p.pending = true
}

func (p *publisher) take() (session.State, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.pending {
		return session.State{}, false
	}
	p.pending = false
	return p.latest, true
}
