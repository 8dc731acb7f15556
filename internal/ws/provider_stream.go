package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/Kilat-Pet-Delivery/service-geo/internal/application"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/domain/location"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/auth"
	"github.com/Kilat-Pet-Delivery/service-geo/internal/platform/response"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// Frame types sent back to the device.
const (
	FrameAck   = "ack"
	FrameError = "error"
)

// PositionUpdater stores a provider's latest ping.
type PositionUpdater interface {
	UpdateProviderLocation(ctx context.Context, providerID uuid.UUID, ping location.PositionPing) (*application.ProviderLocationDTO, error)
}

// Frame is the server's reply to every ping.
type Frame struct {
	Type     string                           `json:"type"`
	Code     string                           `json:"code,omitempty"`
	Message  string                           `json:"message,omitempty"`
	Location *application.ProviderLocationDTO `json:"location,omitempty"`
}

// ProviderStream accepts a continuous stream of position pings from a provider device.
type ProviderStream struct {
	updater    PositionUpdater
	jwtManager *auth.JWTManager
	upgrader   websocket.Upgrader
	logger     *zap.Logger
}

// NewProviderStream creates a new ProviderStream.
func NewProviderStream(updater PositionUpdater, jwtManager *auth.JWTManager, logger *zap.Logger) *ProviderStream {
	return &ProviderStream{
		updater:    updater,
		jwtManager: jwtManager,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		logger: logger,
	}
}

// RegisterRoutes registers the websocket endpoint.
func (s *ProviderStream) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("/ws/providers/location", s.Stream)
}

// Stream handles GET /ws/providers/location?token=... The access token is
// checked before the upgrade.
func (s *ProviderStream) Stream(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Unauthorized(c, "token required")
		return
	}
	claims, err := s.jwtManager.ValidateAccessToken(token)
	if err != nil {
		response.Unauthorized(c, "invalid or expired token")
		return
	}
	if claims.Role != auth.RoleProvider {
		response.Forbidden(c, "only providers can stream positions")
		return
	}

	conn, err := s.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	defer conn.Close()

	providerID := claims.UserID
	logger := s.logger.With(zap.String("provider_id", providerID.String()))
	logger.Info("provider position stream opened")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	go keepAlive(ctx, conn)

	conn.SetReadLimit(maxMessageSize)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Warn("provider position stream closed unexpectedly", zap.Error(err))
			}
			logger.Info("provider position stream closed")
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(pongWait))

		reply := s.handlePing(ctx, providerID, data)
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(reply); err != nil {
			logger.Warn("failed to write position ack", zap.Error(err))
			return
		}
	}
}

func (s *ProviderStream) handlePing(ctx context.Context, providerID uuid.UUID, data []byte) Frame {
	var ping location.PositionPing
	if err := json.Unmarshal(data, &ping); err != nil {
		return Frame{Type: FrameError, Code: string(domain.KindInvalidInput), Message: "malformed position ping"}
	}

	dto, err := s.updater.UpdateProviderLocation(ctx, providerID, ping)
	if err != nil {
		return errorFrame(err)
	}
	return Frame{Type: FrameAck, Location: dto}
}

func errorFrame(err error) Frame {
	var de *domain.Error
	if errors.As(err, &de) && de.Kind != domain.KindDBError {
		return Frame{Type: FrameError, Code: string(de.Kind), Message: de.Message}
	}
	return Frame{Type: FrameError, Code: "INTERNAL_ERROR", Message: "internal server error"}
}

// keepAlive pings the device until ctx ends. WriteControl is safe to call
// alongside the reader loop's writes.
func keepAlive(ctx context.Context, conn *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}
