// Package gateway exposes the planning agent over a websocket protocol:
// clients stream audio chunks and plan requests in, and receive
// transcriptions and run outcomes as they become available.
package gateway

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	contractx "github.com/KohJunJie/tour-agent-planner/agent/contract"
	orchestratorx "github.com/KohJunJie/tour-agent-planner/agent/orchestrator"
)

type Config struct {
	Host           string        `envconfig:"HOST" default:"0.0.0.0"`
	Port           int           `envconfig:"PORT" default:"8000"`
	Debug          bool          `envconfig:"DEBUG" default:"false"`
	SendBufferSize int           `envconfig:"SEND_BUFFER_SIZE" split_words:"true" default:"16"`
	WriteTimeout   time.Duration `envconfig:"WRITE_TIMEOUT" split_words:"true" default:"10s"`
}

// Server is the HTTP and websocket front door. One Session per websocket
// connection; plan runs started from a session outlive it.
type Server struct {
	orchestrator *orchestratorx.Orchestrator
	transcriber  contractx.Transcriber
	cfg          Config

	engine     *gin.Engine
	httpServer *http.Server
	upgrader   websocket.Upgrader

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewServer(o *orchestratorx.Orchestrator, transcriber contractx.Transcriber, cfg Config) (*Server, error) {
	if o == nil {
		return nil, errors.New("orchestrator is required")
	}
	if transcriber == nil {
		transcriber = StubTranscriber{}
	}

	if !cfg.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowAllOrigins = true
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Requested-With"}
	corsConfig.AllowWebSockets = true
	engine.Use(cors.New(corsConfig))

	s := &Server{
		orchestrator: o,
		transcriber:  transcriber,
		cfg:          cfg,
		engine:       engine,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		sessions: make(map[string]*Session),
	}

	engine.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "Hello from Tour Agent Planner!"})
	})
	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/ws", s.handleWebSocket)

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Handler:      engine,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s, nil
}

// Handler exposes the routing tree for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start serves until the listener fails or Stop is called.
func (s *Server) Start() error {
	log.Info().Str("addr", s.httpServer.Addr).Msg("gateway listening")
	err := s.httpServer.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop shuts the listener down gracefully and closes every live session.
func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	for _, session := range s.sessions {
		session.Shutdown()
	}
	s.mu.Unlock()
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(c *gin.Context) {
	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		log.Warn().Err(err).Msg("websocket upgrade failed")
		return
	}

	session := NewSession(uuid.NewString(), s.cfg.SendBufferSize)
	s.mu.Lock()
	s.sessions[session.ID] = session
	s.mu.Unlock()

	log.Info().Str("session_id", session.ID).Msg("session connected")

	go s.writeLoop(conn, session)

	session.Activate()
	session.Emit(welcomeEvent())

	s.readLoop(c.Request.Context(), conn, session)

	session.Shutdown()
	s.mu.Lock()
	delete(s.sessions, session.ID)
	s.mu.Unlock()
	log.Info().Str("session_id", session.ID).Msg("session disconnected")
}

func (s *Server) writeLoop(conn *websocket.Conn, session *Session) {
	for ev := range session.send {
		_ = conn.SetWriteDeadline(time.Now().Add(s.cfg.WriteTimeout))
		if err := conn.WriteJSON(ev); err != nil {
			log.Warn().Str("session_id", session.ID).Err(err).Msg("websocket write failed")
			break
		}
	}
	session.finishClose()
	_ = conn.Close()
}

func (s *Server) readLoop(ctx context.Context, conn *websocket.Conn, session *Session) {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				log.Warn().Str("session_id", session.ID).Err(err).Msg("websocket read failed")
			}
			return
		}

		var frame Frame
		if err := json.Unmarshal(payload, &frame); err != nil {
			session.Emit(errorEvent(ErrKindValidation, "malformed frame: "+err.Error()))
			continue
		}

		switch frame.Type {
		case FrameAudioChunk:
			s.handleAudioChunk(ctx, session, frame)
		case FramePlanRequest:
			s.handlePlanRequest(ctx, session, frame)
		case FrameDisconnect:
			return
		default:
			session.Emit(errorEvent(ErrKindValidation, fmt.Sprintf("unknown frame type %q", frame.Type)))
		}
	}
}

func (s *Server) handleAudioChunk(ctx context.Context, session *Session, frame Frame) {
	chunk, err := base64.StdEncoding.DecodeString(frame.Data)
	if err != nil {
		session.Emit(errorEvent(ErrKindValidation, "audio_chunk data is not valid base64"))
		return
	}
	if err := session.AppendAudio(chunk); err != nil {
		session.Emit(errorEvent(ErrKindSessionState, err.Error()))
		return
	}

	text, err := s.transcriber.Transcribe(ctx, session.FlushAudio())
	if err != nil {
		session.Emit(errorEvent(ErrKindValidation, "transcription failed: "+err.Error()))
		return
	}
	session.Emit(Event{Type: EventTranscription, Text: text})
}

// handlePlanRequest kicks off a run and reports the outcome when it finishes.
// The run is started with a background context so it keeps going if the
// client disconnects; the result emit is best effort.
func (s *Server) handlePlanRequest(_ context.Context, session *Session, frame Frame) {
	if state := session.State(); state != SessionActive {
		session.Emit(errorEvent(ErrKindSessionState,
			fmt.Sprintf("session %s is %s", session.ID, state)))
		return
	}

	var inputs contractx.RunInputs
	if frame.Inputs != nil {
		inputs = *frame.Inputs
	}

	handle, err := s.orchestrator.StartRun(context.Background(), inputs)
	if err != nil {
		kind := ErrKindValidation
		if errors.Is(err, contractx.ErrGraph) {
			kind = ErrKindGraph
		}
		session.Emit(errorEvent(kind, err.Error()))
		return
	}

	log.Info().Str("session_id", session.ID).Str("run_id", handle.ID).Msg("plan run started")

	go func() {
		outcome, err := handle.Await(context.Background())
		if err != nil {
			return
		}
		if !session.Emit(Event{Type: EventPlanResult, Outcome: &outcome}) {
			log.Debug().Str("run_id", handle.ID).Msg("session gone before plan result")
		}
	}()
}
