package linkedin

import (
	"context"
	"fmt"
	"time"

	"linkedboost/internal/domain"
)

// Message is an outbound direct message.
type Message struct {
	RecipientID string   `json:"recipient_id"`
	Subject     string   `json:"subject,omitempty"`
	Body        string   `json:"body"`
	Attachments []string `json:"attachments,omitempty"`
}

// Post is an outbound feed publication.
type Post struct {
	Content    string   `json:"content"`
	Visibility string   `json:"visibility" enum:"PUBLIC,CONNECTIONS,LOGGED_IN"`
	Media      []string `json:"media,omitempty"`
}

// PostAction is a reaction to someone else's post.
type PostAction string

const (
	ActionLike    PostAction = "like"
	ActionComment PostAction = "comment"
)

type MessageResult struct {
	Success   bool   `json:"success"`
	MessageID string `json:"message_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type ConnectionRequestResult struct {
	Success   bool   `json:"success"`
	RequestID string `json:"request_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type PostResult struct {
	Success bool   `json:"success"`
	PostID  string `json:"post_id,omitempty"`
	Error   string `json:"error,omitempty"`
}

type InteractionResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// APILimits is a snapshot of the external API quota.
type APILimits struct {
	Used      int       `json:"used"`
	Total     int       `json:"total"`
	ResetTime time.Time `json:"reset_time" format:"date-time"`
}

// Client simulates the LinkedIn REST API. The real wire protocol is out of
// scope; responses mirror the shapes the production API would return,
// including required-field failures.
type Client struct {
	accessToken string
	baseURL     string

	// Latency adds simulated network delay per call. Zero in tests.
	Latency time.Duration
	Now     func() time.Time
}

// NewClient builds a simulated client for the given access token.
func NewClient(accessToken string) *Client {
	return &Client{
		accessToken: accessToken,
		baseURL:     "https://api.linkedin.com/v2",
		Now:         time.Now,
	}
}

func (c *Client) pause(ctx context.Context) {
	if c.Latency <= 0 {
		return
	}
	select {
	case <-time.After(c.Latency):
	case <-ctx.Done():
	}
}

func (c *Client) now() time.Time {
	if c.Now != nil {
		return c.Now()
	}
	return time.Now()
}

// VerifyToken reports whether the access token resolves to a profile.
func (c *Client) VerifyToken(ctx context.Context) bool {
	_, err := c.GetProfile(ctx)
	return err == nil
}

// GetProfile returns the authenticated user's profile.
func (c *Client) GetProfile(ctx context.Context) (domain.Profile, error) {
	if c.accessToken == "" {
		return domain.Profile{}, fmt.Errorf("jeton d'accès manquant")
	}
	c.pause(ctx)
	return domain.Profile{
		ID:         "abc123",
		FirstName:  "Marie",
		LastName:   "Dupont",
		Headline:   "Chef de Projet Marketing Digital | Spécialiste SEO & Content",
		Industry:   "Marketing",
		VanityName: "mariedupont",
	}, nil
}

// GetConnections returns a page of 1st-degree connections.
func (c *Client) GetConnections(ctx context.Context, start, count int) ([]domain.Connection, error) {
	if count <= 0 {
		count = 50
	}
	c.pause(ctx)
	conns := make([]domain.Connection, count)
	for i := range conns {
		conns[i] = domain.Connection{
			ID:               fmt.Sprintf("conn_%d", start+i),
			FirstName:        fmt.Sprintf("Prénom%d", start+i),
			LastName:         fmt.Sprintf("Nom%d", start+i),
			Headline:         fmt.Sprintf("Titre professionnel %d", start+i),
			ConnectionDegree: 1,
		}
	}
	return conns, nil
}

// SendMessage delivers a direct message.
func (c *Client) SendMessage(ctx context.Context, msg Message) (MessageResult, error) {
	if msg.Body == "" || msg.RecipientID == "" {
		return MessageResult{Success: false, Error: "le corps du message et l'ID du destinataire sont requis"}, nil
	}
	c.pause(ctx)
	return MessageResult{Success: true, MessageID: fmt.Sprintf("msg_%d", c.now().UnixMilli())}, nil
}

// SendConnectionRequest sends an invitation, optionally with a note.
func (c *Client) SendConnectionRequest(ctx context.Context, userID, message string) (ConnectionRequestResult, error) {
	if userID == "" {
		return ConnectionRequestResult{Success: false, Error: "l'ID de l'utilisateur est requis"}, nil
	}
	c.pause(ctx)
	return ConnectionRequestResult{Success: true, RequestID: fmt.Sprintf("req_%d", c.now().UnixMilli())}, nil
}

// CreatePost publishes a feed post.
func (c *Client) CreatePost(ctx context.Context, post Post) (PostResult, error) {
	if post.Content == "" {
		return PostResult{Success: false, Error: "le contenu du post est requis"}, nil
	}
	c.pause(ctx)
	return PostResult{Success: true, PostID: fmt.Sprintf("post_%d", c.now().UnixMilli())}, nil
}

// InteractWithPost likes or comments on a post.
func (c *Client) InteractWithPost(ctx context.Context, postID string, action PostAction, comment string) (InteractionResult, error) {
	if postID == "" {
		return InteractionResult{Success: false, Error: "l'ID du post est requis"}, nil
	}
	if action == ActionComment && comment == "" {
		return InteractionResult{Success: false, Error: "le commentaire est requis"}, nil
	}
	c.pause(ctx)
	return InteractionResult{Success: true}, nil
}

// GetAPILimits reports current quota usage.
func (c *Client) GetAPILimits(ctx context.Context) (APILimits, error) {
	c.pause(ctx)
	return APILimits{Used: 68, Total: 100, ResetTime: c.now().Add(7 * time.Hour)}, nil
}
