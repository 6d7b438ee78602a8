package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shinyyama/campus-market/internal/middleware"
	"github.com/shinyyama/campus-market/internal/service"
)

type ConversationHandler struct {
	svc service.ConversationService
}

func NewConversationHandler(svc service.ConversationService) *ConversationHandler {
	return &ConversationHandler{svc: svc}
}

type MessageForm struct {
	Content string `form:"content" json:"content"`
}

type InboxResponse struct {
	Conversations []ConversationView `json:"conversations"`
}

type ConversationDetailResponse struct {
	Conversation ConversationView `json:"conversation"`
	Messages     []MessageView    `json:"messages"`
	Values       MessageForm      `json:"values"`
}

type NewConversationResponse struct {
	Listing ListingView `json:"listing"`
	Values  MessageForm `json:"values"`
}

func (h *ConversationHandler) Inbox(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	convs, err := h.svc.Inbox(c.Request().Context(), uid)
	if err != nil {
		return respond(c, err, "conversations", nil)
	}
	resp := InboxResponse{Conversations: make([]ConversationView, 0, len(convs))}
	for i := range convs {
		resp.Conversations = append(resp.Conversations, toConversationView(&convs[i]))
	}
	return c.JSON(http.StatusOK, resp)
}

func (h *ConversationHandler) Detail(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	id, ok := pathID(c, "id")
	if !ok {
		return respond(c, service.ErrNotFound, "conversation", nil)
	}
	cv, msgs, err := h.svc.Get(c.Request().Context(), id, uid)
	if err != nil {
		return respond(c, err, "conversation", nil)
	}
	return c.JSON(http.StatusOK, ConversationDetailResponse{
		Conversation: toConversationView(cv),
		Messages:     toMessageViews(msgs),
	})
}

func (h *ConversationHandler) Post(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	id, ok := pathID(c, "id")
	if !ok {
		return respond(c, service.ErrNotFound, "conversation", nil)
	}
	var f MessageForm
	if err := bindForm(c, &f); err != nil {
		return respond(c, err, "message", f)
	}
	if _, err := h.svc.PostMessage(c.Request().Context(), id, uid, f.Content); err != nil {
		return respond(c, err, "conversation", f)
	}
	return c.Redirect(http.StatusSeeOther, conversationPath(id))
}

// New shows the first-message form, or sends the actor to the conversation they already have.
func (h *ConversationHandler) New(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	listingID, ok := pathID(c, "listingId")
	if !ok {
		return respond(c, service.ErrNotFound, "listing", nil)
	}
	listing, cv, err := h.svc.Open(c.Request().Context(), listingID, uid)
	switch {
	case errors.Is(err, service.ErrOwnListing):
		return c.Redirect(http.StatusFound, listingPath(listingID))
	case err != nil:
		return respond(c, err, "listing", nil)
	case cv != nil:
		return c.Redirect(http.StatusFound, conversationPath(cv.ID))
	}
	return c.JSON(http.StatusOK, NewConversationResponse{Listing: toListingView(listing)})
}

func (h *ConversationHandler) Start(c echo.Context) error {
	uid, _ := middleware.UserID(c)
	listingID, ok := pathID(c, "listingId")
	if !ok {
		return respond(c, service.ErrNotFound, "listing", nil)
	}
	var f MessageForm
	if err := bindForm(c, &f); err != nil {
		return respond(c, err, "message", f)
	}
	cv, created, err := h.svc.Start(c.Request().Context(), listingID, uid, f.Content)
	switch {
	case errors.Is(err, service.ErrOwnListing):
		return c.Redirect(http.StatusSeeOther, listingPath(listingID))
	case err != nil:
		return respond(c, err, "listing", f)
	case !created:
		return c.Redirect(http.StatusSeeOther, conversationPath(cv.ID))
	}
	return c.Redirect(http.StatusSeeOther, listingPath(listingID))
}

func conversationPath(id uint64) string {
	return "/chat/" + strconv.FormatUint(id, 10)
}
