package controller

import (
	"edutheo_backend/internal/service"
	"edutheo_backend/internal/util"
	"edutheo_backend/pkg/logger"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// historyLimit caps the conversation context sent to the model; older
// turns fall off the front.
const historyLimit = 20

var chatUpgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ChatController struct {
	TutorService *service.TutorService
	Hub          *service.EventHub
	Streamer     *service.TextStreamer
}

func NewChatController(tutorService *service.TutorService, hub *service.EventHub) *ChatController {
	return &ChatController{
		TutorService: tutorService,
		Hub:          hub,
		Streamer:     service.NewTextStreamer(),
	}
}

// Events attaches the connection to the practice event stream.
func (c *ChatController) Events(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}
	service.ServeEvents(c.Hub, ctx.Writer, ctx.Request, user.UserID)
}

type chatRequest struct {
	Message string `json:"message"`
}

type chatFrame struct {
	Type             string         `json:"type"` // chunk, done, error
	Content          string         `json:"content,omitempty"`
	Intent           service.Intent `json:"intent,omitempty"`
	RemainingQueries *int           `json:"remaining_queries,omitempty"`
	Message          string         `json:"message,omitempty"`
}

// Chat runs a tutor session over one websocket. Turns are handled
// sequentially; the reply streams back character by character before the
// closing done frame.
func (c *ChatController) Chat(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	conn, err := chatUpgrader.Upgrade(ctx.Writer, ctx.Request, nil)
	if err != nil {
		logger.Log.Error("Chat upgrade failed", zap.Error(err), zap.Uint("userId", user.UserID))
		return
	}
	defer conn.Close()

	// Per-connection history; a new socket starts a fresh session.
	var history []service.AIChatMessage

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Log.Warn("Chat connection closed unexpectedly", zap.Error(err), zap.Uint("userId", user.UserID))
			}
			return
		}
		if req.Message == "" {
			conn.WriteJSON(chatFrame{Type: "error", Message: "Message must not be empty"})
			continue
		}

		reply, err := c.TutorService.HandleMessage(ctx.Request.Context(), user.UserID, history, req.Message)
		if err != nil {
			frame := chatFrame{Type: "error", Message: "Something went wrong, please try again"}
			if errors.Is(err, util.ErrDailyQueryLimit) {
				frame.Message = err.Error()
			}
			if writeErr := conn.WriteJSON(frame); writeErr != nil {
				return
			}
			continue
		}

		streamErr := c.Streamer.Stream(ctx.Request.Context(), reply.Message, func(chunk string) error {
			return conn.WriteJSON(chatFrame{Type: "chunk", Content: chunk})
		})
		if streamErr != nil {
			return
		}

		rq := reply.RemainingQueries
		if err := conn.WriteJSON(chatFrame{Type: "done", Intent: reply.Intent, RemainingQueries: &rq}); err != nil {
			return
		}

		history = append(history,
			service.AIChatMessage{Role: "user", Content: req.Message},
			service.AIChatMessage{Role: "assistant", Content: reply.Message},
		)
		if len(history) > historyLimit {
			history = history[len(history)-historyLimit:]
		}
	}
}

// Quota reports the user's remaining daily tutor allowance without
// consuming a query.
func (c *ChatController) Quota(ctx *gin.Context) {
	user := util.GetUserFromContext(ctx)
	if user == nil {
		util.Unauthorized(ctx)
		return
	}

	quota, err := c.TutorService.Quota(user.UserID)
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}
	util.Success(ctx, quota)
}
