package handler

import (
	"time"

	"github.com/shinyyama/campus-market/internal/model"
)

type CategoryView struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type UserSummary struct {
	ID          uint64 `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"displayName"`
}

type UserView struct {
	UserSummary
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
	Email     string `json:"email"`
	JoinedAt  string `json:"joinedAt"`
}

type ListingView struct {
	ID          uint64        `json:"id"`
	Title       string        `json:"title"`
	Description string        `json:"description"`
	Price       string        `json:"price"`
	ImageURL    *string       `json:"imageUrl,omitempty"`
	IsSold      bool          `json:"isSold"`
	Category    *CategoryView `json:"category,omitempty"`
	Seller      *UserSummary  `json:"seller,omitempty"`
	CreatedAt   string        `json:"createdAt"`
}

type ConversationView struct {
	ID         uint64        `json:"id"`
	Listing    ListingView   `json:"listing"`
	Members    []UserSummary `json:"members"`
	CreatedAt  string        `json:"createdAt"`
	ModifiedAt string        `json:"modifiedAt"`
}

type MessageView struct {
	ID        uint64      `json:"id"`
	Content   string      `json:"content"`
	CreatedBy UserSummary `json:"createdBy"`
	CreatedAt string      `json:"createdAt"`
}

func timestamp(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toCategoryView(c *model.Category) CategoryView {
	return CategoryView{ID: c.ID, Name: c.Name, Slug: c.Slug}
}

func toCategoryViews(list []model.Category) []CategoryView {
	out := make([]CategoryView, 0, len(list))
	for i := range list {
		out = append(out, toCategoryView(&list[i]))
	}
	return out
}

func toUserSummary(u *model.User) UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, DisplayName: u.DisplayName()}
}

func toUserView(u *model.User) UserView {
	return UserView{
		UserSummary: toUserSummary(u),
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		Email:       u.Email,
		JoinedAt:    timestamp(u.CreatedAt),
	}
}

func toListingView(l *model.Listing) ListingView {
	v := ListingView{
		ID:          l.ID,
		Title:       l.Title,
		Description: l.Description,
		Price:       l.Price.StringFixed(2),
		ImageURL:    l.ImageURL,
		IsSold:      l.IsSold,
		CreatedAt:   timestamp(l.CreatedAt),
	}
	if l.Category.ID != 0 {
		cv := toCategoryView(&l.Category)
		v.Category = &cv
	}
	if l.Seller.ID != 0 {
		s := toUserSummary(&l.Seller)
		v.Seller = &s
	}
	return v
}

func toListingViews(list []model.Listing) []ListingView {
	out := make([]ListingView, 0, len(list))
	for i := range list {
		out = append(out, toListingView(&list[i]))
	}
	return out
}

func toConversationView(cv *model.Conversation) ConversationView {
	members := make([]UserSummary, 0, len(cv.Members))
	for i := range cv.Members {
		members = append(members, toUserSummary(&cv.Members[i]))
	}
	return ConversationView{
		ID:         cv.ID,
		Listing:    toListingView(&cv.Listing),
		Members:    members,
		CreatedAt:  timestamp(cv.CreatedAt),
		ModifiedAt: timestamp(cv.ModifiedAt),
	}
}

func toMessageViews(msgs []model.ConversationMessage) []MessageView {
	out := make([]MessageView, 0, len(msgs))
	for i := range msgs {
		m := &msgs[i]
		out = append(out, MessageView{
			ID:        m.ID,
			Content:   m.Content,
			CreatedBy: toUserSummary(&m.CreatedBy),
			CreatedAt: timestamp(m.CreatedAt),
		})
	}
	return out
}
