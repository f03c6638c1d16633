package api

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"

	"rax/types"
)

// Asker answers a question from the indexed documents.
type Asker interface {
	Ask(ctx context.Context, question string, topK int) (*types.AskResponse, error)
}

type RequestHandler struct {
	asker   Asker
	timeout time.Duration
}

func NewRequestHandler(asker Asker, timeout time.Duration) *RequestHandler {
	return &RequestHandler{
		asker:   asker,
		timeout: timeout,
	}
}

// HandleAsk serves GET /ask?q=...&top_k=...
func (h *RequestHandler) HandleAsk(c *fiber.Ctx) error {
	var params types.QueryParams
	if c.QueryParser(&params) != nil {
		return ErrBadQuery()
	}
	return h.ask(c, &params)
}

// HandleRequest serves POST /api/v1/ask with a JSON body.
func (h *RequestHandler) HandleRequest(c *fiber.Ctx) error {
	var params types.QueryParams
	if c.BodyParser(&params) != nil {
		return ErrBadRequest()
	}
	return h.ask(c, &params)
}

func (h *RequestHandler) ask(c *fiber.Ctx, params *types.QueryParams) error {
	if errors := types.Validate(params); len(errors) > 0 {
		return NewValidationError(errors)
	}

	ctx := c.UserContext()
	if h.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.timeout)
		defer cancel()
	}

	resp, err := h.asker.Ask(ctx, params.Question, params.TopK)
	if err != nil {
		return err
	}
	return c.JSON(resp)
}
