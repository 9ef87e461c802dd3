package whatsapp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"auragold-backend/models"

	"github.com/gofiber/fiber/v2"
)

const DefaultTimeout = 15 * time.Second

// Credentials identify the sending business number.
type Credentials struct {
	PhoneNumberID string
	Token         string
}

// CredentialSource is consulted on every send so settings edits take effect
// without a restart.
type CredentialSource func(ctx context.Context) Credentials

// Result is the outcome of one send. LogEntry is set only on success.
type Result struct {
	Success   bool               `json:"success"`
	MessageID string             `json:"message_id,omitempty"`
	Error     string             `json:"error,omitempty"`
	LogEntry  *models.MessageLog `json:"log_entry,omitempty"`
}

// Client sends messages through the WhatsApp Cloud API.
type Client struct {
	apiBase string
	creds   CredentialSource
	timeout time.Duration
	now     func() time.Time
}

func New(apiBase string, creds CredentialSource) *Client {
	return &Client{
		apiBase: strings.TrimRight(apiBase, "/"),
		creds:   creds,
		timeout: DefaultTimeout,
		now:     time.Now,
	}
}

// FormatPhoneNumber strips everything but digits and adds the 91 country
// code to bare 10 digit numbers.
func FormatPhoneNumber(phone string) string {
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if len(cleaned) == 10 {
		return "91" + cleaned
	}
	return cleaned
}

type textBody struct {
	Body string `json:"body"`
}

type parameter struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type component struct {
	Type       string      `json:"type"`
	Parameters []parameter `json:"parameters"`
}

type language struct {
	Code string `json:"code"`
}

type template struct {
	Name       string      `json:"name"`
	Language   language    `json:"language"`
	Components []component `json:"components"`
}

type sendRequest struct {
	MessagingProduct string    `json:"messaging_product"`
	RecipientType    string    `json:"recipient_type"`
	To               string    `json:"to"`
	Type             string    `json:"type"`
	Text             *textBody `json:"text,omitempty"`
	Template         *template `json:"template,omitempty"`
}

type sendResponse struct {
	Messages []struct {
		ID string `json:"id"`
	} `json:"messages"`
	Error *struct {
		Message string `json:"message"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendMessage sends a free-form text message.
func (c *Client) SendMessage(ctx context.Context, to, text, customerName, msgContext string) Result {
	recipient := FormatPhoneNumber(to)
	req := sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient,
		Type:             "text",
		Text:             &textBody{Body: text},
	}
	id, err := c.send(ctx, req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	return Result{
		Success:   true,
		MessageID: id,
		LogEntry: &models.MessageLog{
			ID:           id,
			ExternalID:   id,
			CustomerName: customerName,
			PhoneNumber:  recipient,
			Message:      text,
			Status:       models.MessageSent,
			Type:         models.MessageTypeCustom,
			Context:      msgContext,
			Direction:    "outbound",
			Timestamp:    c.now(),
		},
	}
}

// SendTemplateMessage sends a pre-approved template with positional body
// variables.
func (c *Client) SendTemplateMessage(ctx context.Context, to, name, lang string, variables []string, customerName string) Result {
	recipient := FormatPhoneNumber(to)
	if lang == "" {
		lang = "en_US"
	}
	tpl := &template{Name: name, Language: language{Code: lang}, Components: []component{}}
	if len(variables) > 0 {
		params := make([]parameter, len(variables))
		for i, v := range variables {
			params[i] = parameter{Type: "text", Text: v}
		}
		tpl.Components = append(tpl.Components, component{Type: "body", Parameters: params})
	}
	req := sendRequest{
		MessagingProduct: "whatsapp",
		RecipientType:    "individual",
		To:               recipient,
		Type:             "template",
		Template:         tpl,
	}
	id, err := c.send(ctx, req)
	if err != nil {
		return Result{Error: err.Error()}
	}
	return Result{
		Success:   true,
		MessageID: id,
		LogEntry: &models.MessageLog{
			ID:           id,
			ExternalID:   id,
			CustomerName: customerName,
			PhoneNumber:  recipient,
			Message:      fmt.Sprintf("[Template: %s]", name),
			Status:       models.MessageSent,
			Type:         models.MessageTypeTemplate,
			Direction:    "outbound",
			Timestamp:    c.now(),
		},
	}
}

func (c *Client) send(ctx context.Context, req sendRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	var creds Credentials
	if c.creds != nil {
		creds = c.creds(ctx)
	}
	if creds.PhoneNumberID == "" || creds.Token == "" {
		return "", fmt.Errorf("missing credentials")
	}

	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if left := time.Until(deadline); left < timeout {
			timeout = left
		}
	}

	agent := fiber.Post(fmt.Sprintf("%s/%s/messages", c.apiBase, creds.PhoneNumberID))
	agent.Set(fiber.HeaderAuthorization, "Bearer "+creds.Token)
	agent.JSON(req)
	agent.Timeout(timeout)

	code, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return "", fmt.Errorf("send exception: %w", errs[0])
	}

	var resp sendResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("send failed (status %d): unreadable response", code)
	}
	if resp.Error != nil {
		return "", fmt.Errorf("send failed (status %d, code %d): %s", code, resp.Error.Code, resp.Error.Message)
	}
	if code >= fiber.StatusBadRequest {
		return "", fmt.Errorf("send failed (status %d)", code)
	}
	if len(resp.Messages) > 0 && resp.Messages[0].ID != "" {
		return resp.Messages[0].ID, nil
	}
	return fmt.Sprintf("wamid.%d", c.now().UnixMilli()), nil
}
