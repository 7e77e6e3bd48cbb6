package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
)

// MessagingGateway delivers a text message to a normalized phone number.
// Delivery is attempted once; callers decide what a failure means.
type MessagingGateway interface {
	SendMessage(ctx context.Context, to, body string) error
}

type MessagingConfig struct {
	Provider     string
	ServiceURL   string
	AccountSID   string
	AuthToken    string
	WhatsAppFrom string
}

func NewMessagingGateway(cfg MessagingConfig) (MessagingGateway, error) {
	switch cfg.Provider {
	case "", "console":
		return &consoleGateway{}, nil
	case "twilio":
		if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.WhatsAppFrom == "" {
			return nil, fmt.Errorf("missing Twilio credentials")
		}
		client := twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: cfg.AccountSID,
			Password: cfg.AuthToken,
		})
		return &twilioGateway{api: client.Api, from: cfg.WhatsAppFrom}, nil
	case "wwebjs":
		return &wwebjsGateway{
			serviceURL: strings.TrimRight(cfg.ServiceURL, "/"),
			client:     &http.Client{Timeout: 15 * time.Second},
		}, nil
	default:
		return nil, fmt.Errorf("unsupported WhatsApp provider: %s", cfg.Provider)
	}
}

// consoleGateway logs messages instead of sending them. Development only.
type consoleGateway struct{}

func (g *consoleGateway) SendMessage(_ context.Context, to, body string) error {
	log.Info().Str("provider", "console").Str("to", to).Str("message", body).Msg("WhatsApp message (not sent)")
	return nil
}

type twilioMessageCreator interface {
	CreateMessage(params *twilioApi.CreateMessageParams) (*twilioApi.ApiV2010Message, error)
}

type twilioGateway struct {
	api  twilioMessageCreator
	from string
}

func (g *twilioGateway) SendMessage(_ context.Context, to, body string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(g.from)
	params.SetTo("whatsapp:" + to)
	params.SetBody(body)

	resp, err := g.api.CreateMessage(params)
	if err != nil {
		log.Error().Err(err).Str("provider", "twilio").Str("to", to).Msg("Failed to send WhatsApp message")
		return fmt.Errorf("twilio send: %w", err)
	}

	sid := ""
	if resp != nil && resp.Sid != nil {
		sid = *resp.Sid
	}
	log.Info().Str("provider", "twilio").Str("sid", sid).Msg("WhatsApp message sent")
	return nil
}

// wwebjsGateway talks to a whatsapp-web.js bridge exposing POST /send-message.
type wwebjsGateway struct {
	serviceURL string
	client     *http.Client
}

type wwebjsRequest struct {
	PhoneNumber string `json:"phoneNumber"`
	Message     string `json:"message"`
}

type wwebjsResponse struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (g *wwebjsGateway) SendMessage(ctx context.Context, to, body string) error {
	payload, err := json.Marshal(wwebjsRequest{PhoneNumber: to, Message: body})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.serviceURL+"/send-message", bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("build wwebjs request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		log.Error().Err(err).Str("provider", "wwebjs").Msg("WhatsApp service unreachable")
		return fmt.Errorf("wwebjs send: %w", err)
	}
	defer resp.Body.Close()

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var result wwebjsResponse
	_ = json.Unmarshal(raw, &result)

	if resp.StatusCode >= 300 || !result.Success {
		msg := result.Error
		if msg == "" {
			msg = resp.Status
		}
		log.Error().Str("provider", "wwebjs").Int("status", resp.StatusCode).Str("error", msg).Msg("WhatsApp service rejected message")
		return fmt.Errorf("wwebjs send: %s", msg)
	}

	log.Info().Str("provider", "wwebjs").Str("to", to).Msg("WhatsApp message sent")
	return nil
}
