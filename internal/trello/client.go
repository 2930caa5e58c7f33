// Package trello is the board adapter. Cards, lists, labels, members, checklists and
// attachments are reached through the board's REST API with key/token credentials.
package trello

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/bbeale/GitTreasures/internal/apiclient"
	"github.com/bbeale/GitTreasures/internal/config"
	"github.com/bbeale/GitTreasures/internal/models"

	"go.uber.org/zap"
)

// DefaultBaseURL is the board REST API root
const DefaultBaseURL = "https://api.trello.com/1"

// cardFields is what a snapshot needs from every card
const cardFields = "name,idList,pos,desc,labels,idMembers"

type Client struct {
	api *apiclient.Client
	log *zap.SugaredLogger

	mu sync.Mutex
	// created remembers board labels this client made, so later cards reuse them
	created map[string]string
}

type clientOptions struct {
	baseURL    string
	httpClient *http.Client
}

type Option func(*clientOptions)

// WithBaseURL points the client at another API root
func WithBaseURL(u string) Option {
	return func(o *clientOptions) { o.baseURL = u }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(o *clientOptions) { o.httpClient = hc }
}

func New(cfg config.TrelloConfig, common config.CommonConfig, log *zap.SugaredLogger, opts ...Option) *Client {
	o := clientOptions{baseURL: DefaultBaseURL}
	for _, opt := range opts {
		opt(&o)
	}
	log = log.Named("trello")
	return &Client{
		api: apiclient.New(apiclient.Options{
			BaseURL:    o.baseURL,
			Timeout:    common.RequestTimeout.Duration,
			RetryDelay: common.RetryDelay.Duration,
			Auth:       apiclient.QueryAuth(map[string]string{"key": cfg.Key, "token": cfg.Token}),
			HTTPClient: o.httpClient,
			Log:        log,
		}),
		log:     log,
		created: make(map[string]string),
	}
}

func esc(id string) string { return url.PathEscape(id) }

// GetBoard returns the board, or nil if it does not exist
func (c *Client) GetBoard(ctx context.Context, boardID string) (*models.Board, error) {
	var b models.Board
	err := c.api.Do(ctx, http.MethodGet, "boards/"+esc(boardID), url.Values{"fields": {"name,url"}}, nil, &b)
	if apiclient.IsNotFound(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get board %s: %w", boardID, err)
	}
	return &b, nil
}

// Lists returns the open lists of a board in board order
func (c *Client) Lists(ctx context.Context, boardID string) ([]models.BoardList, error) {
	var lists []models.BoardList
	if err := c.api.Do(ctx, http.MethodGet, "boards/"+esc(boardID)+"/lists", url.Values{"filter": {"open"}}, nil, &lists); err != nil {
		return nil, fmt.Errorf("get lists of board %s: %w", boardID, err)
	}
	return lists, nil
}

func (c *Client) Labels(ctx context.Context, boardID string) ([]models.Label, error) {
	var labels []models.Label
	if err := c.api.Do(ctx, http.MethodGet, "boards/"+esc(boardID)+"/labels", nil, nil, &labels); err != nil {
		return nil, fmt.Errorf("get labels of board %s: %w", boardID, err)
	}
	return labels, nil
}

func (c *Client) Members(ctx context.Context, boardID string) ([]models.Member, error) {
	var members []models.Member
	if err := c.api.Do(ctx, http.MethodGet, "boards/"+esc(boardID)+"/members", nil, nil, &members); err != nil {
		return nil, fmt.Errorf("get members of board %s: %w", boardID, err)
	}
	return members, nil
}

// CardsInList returns the open cards of a list. Callers should not rely on the order.
func (c *Client) CardsInList(ctx context.Context, listID string) ([]models.Card, error) {
	var cards []models.Card
	if err := c.api.Do(ctx, http.MethodGet, "lists/"+esc(listID)+"/cards", url.Values{"fields": {cardFields}}, nil, &cards); err != nil {
		return nil, fmt.Errorf("get cards in list %s: %w", listID, err)
	}
	return cards, nil
}

// CreateCard creates a bare card. Labels, members, attachments and checklists are added
// separately so that one failing decoration does not lose the card.
func (c *Client) CreateCard(ctx context.Context, listID string, card models.NewCard) (*models.Card, error) {
	body := map[string]string{
		"idList": listID,
		"name":   card.Name,
		"desc":   card.Desc,
		"pos":    card.Position.String(),
	}
	var created models.Card
	if err := c.api.DoOnce(ctx, http.MethodPost, "cards", nil, body, &created); err != nil {
		return nil, fmt.Errorf("create card %s: %w", card.Name, err)
	}
	return &created, nil
}

// CopyCard copies a card with everything on it into another list. Like CreateCard it
// is sent once; a timed-out copy may still have landed.
func (c *Client) CopyCard(ctx context.Context, cardID, listID string, pos models.Position) (*models.Card, error) {
	body := map[string]string{
		"idList":         listID,
		"idCardSource":   cardID,
		"keepFromSource": "all",
		"pos":            pos.String(),
	}
	var created models.Card
	if err := c.api.DoOnce(ctx, http.MethodPost, "cards", nil, body, &created); err != nil {
		return nil, fmt.Errorf("copy card %s to list %s: %w", cardID, listID, err)
	}
	return &created, nil
}

// DeleteCard deletes a card. Deleting a card that is already gone is not an error.
func (c *Client) DeleteCard(ctx context.Context, cardID string) error {
	err := c.api.Do(ctx, http.MethodDelete, "cards/"+esc(cardID), nil, nil, nil)
	if apiclient.IsNotFound(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("delete card %s: %w", cardID, err)
	}
	return nil
}

// AddLabel puts a label on a card: an existing board label by id, otherwise a new
// label created from its name and color. A label created here is reused by id for
// later cards instead of being created again.
func (c *Client) AddLabel(ctx context.Context, cardID string, label models.Label) error {
	id := label.ID
	if id == "" {
		id = c.createdLabel(label)
	}
	if id != "" {
		err := c.api.Do(ctx, http.MethodPost, "cards/"+esc(cardID)+"/idLabels", nil, map[string]string{"value": id}, nil)
		switch {
		case err == nil:
			return nil
		case label.ID == "" && apiclient.IsNotFound(err):
			// removed from the board since; make it again
			c.forgetLabel(label)
		default:
			return fmt.Errorf("label card %s with %q: %w", cardID, label.Name, err)
		}
	}

	body := map[string]string{"name": label.Name}
	if label.Color != "" {
		body["color"] = label.Color
	}
	var made models.Label
	if err := c.api.DoOnce(ctx, http.MethodPost, "cards/"+esc(cardID)+"/labels", nil, body, &made); err != nil {
		return fmt.Errorf("label card %s with %q: %w", cardID, label.Name, err)
	}
	if made.ID != "" {
		c.mu.Lock()
		c.created[labelKey(label)] = made.ID
		c.mu.Unlock()
	}
	return nil
}

func labelKey(l models.Label) string {
	return strings.ToLower(l.Name) + "/" + strings.ToLower(l.Color)
}

func (c *Client) createdLabel(l models.Label) string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.created[labelKey(l)]
}

func (c *Client) forgetLabel(l models.Label) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.created, labelKey(l))
}

func (c *Client) AddMember(ctx context.Context, cardID, memberID string) error {
	err := c.api.Do(ctx, http.MethodPost, "cards/"+esc(cardID)+"/idMembers", nil, map[string]string{"value": memberID}, nil)
	if err != nil {
		return fmt.Errorf("add member %s to card %s: %w", memberID, cardID, err)
	}
	return nil
}

// AddAttachment attaches a link to a card
func (c *Client) AddAttachment(ctx context.Context, cardID, link string) error {
	body := map[string]string{"url": link, "name": attachmentName(link)}
	if err := c.api.Do(ctx, http.MethodPost, "cards/"+esc(cardID)+"/attachments", nil, body, nil); err != nil {
		return fmt.Errorf("attach %s to card %s: %w", link, cardID, err)
	}
	return nil
}

func attachmentName(link string) string {
	if i := strings.LastIndex(link, "/"); i >= 0 && i < len(link)-1 {
		return link[i+1:]
	}
	return link
}

func (c *Client) AddChecklist(ctx context.Context, cardID, name string) (*models.Checklist, error) {
	var cl models.Checklist
	if err := c.api.Do(ctx, http.MethodPost, "cards/"+esc(cardID)+"/checklists", nil, map[string]string{"name": name}, &cl); err != nil {
		return nil, fmt.Errorf("add checklist to card %s: %w", cardID, err)
	}
	return &cl, nil
}

func (c *Client) AddChecklistItem(ctx context.Context, checklistID, name string) error {
	body := map[string]string{"name": name, "pos": models.PosBottom}
	if err := c.api.Do(ctx, http.MethodPost, "checklists/"+esc(checklistID)+"/checkItems", nil, body, nil); err != nil {
		return fmt.Errorf("add item to checklist %s: %w", checklistID, err)
	}
	return nil
}

// AddList creates a list at the bottom of a board
func (c *Client) AddList(ctx context.Context, boardID, name string) (*models.BoardList, error) {
	body := map[string]string{"name": name, "idBoard": boardID, "pos": models.PosBottom}
	var l models.BoardList
	if err := c.api.Do(ctx, http.MethodPost, "lists", nil, body, &l); err != nil {
		return nil, fmt.Errorf("add list %q to board %s: %w", name, boardID, err)
	}
	return &l, nil
}

func (c *Client) ArchiveAllCardsInList(ctx context.Context, listID string) error {
	if err := c.api.Do(ctx, http.MethodPost, "lists/"+esc(listID)+"/archiveAllCards", nil, nil, nil); err != nil {
		return fmt.Errorf("archive cards in list %s: %w", listID, err)
	}
	return nil
}

// MoveAllCardsInList moves every card of a list to a list on another board
func (c *Client) MoveAllCardsInList(ctx context.Context, listID, destBoardID, destListID string) error {
	body := map[string]string{"idBoard": destBoardID, "idList": destListID}
	if err := c.api.Do(ctx, http.MethodPost, "lists/"+esc(listID)+"/moveAllCards", nil, body, nil); err != nil {
		return fmt.Errorf("move cards of list %s to %s: %w", listID, destListID, err)
	}
	return nil
}
