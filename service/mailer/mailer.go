// Package mailer sends transactional auction mails through an HTTP mail
// provider. Sends are best-effort: the lifecycle manager retries on the next
// finalize pass when a send fails, so the client keeps retries short.
package mailer

import (
	"bytes"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	bCtx "github.com/bidhaus/goapi/base/ctx"
	"github.com/bidhaus/goapi/base/backoff"
	"github.com/bidhaus/goapi/base/log"
	"github.com/bidhaus/goapi/domain"
)

var ErrStatusCodeNotOk = errors.New("http.status != 200")

const (
	templateAuctionWon   = "auction-won"
	templateAuctionEnded = "auction-ended"

	sendAttempts = 3
)

type ClientCfg struct {
	HttpClient http.Client
	Endpoint   string
	Timeout    time.Duration
	Apikey     string
}

type client struct {
	client   http.Client
	endpoint string
	timeout  time.Duration
	apikey   string
}

func NewClient(cfg *ClientCfg) domain.Mailer {
	return &client{
		client:   cfg.HttpClient,
		endpoint: cfg.Endpoint,
		timeout:  cfg.Timeout,
		apikey:   cfg.Apikey,
	}
}

type sendRequest struct {
	To       string                  `json:"to"`
	Template string                  `json:"template"`
	Vars     domain.AuctionEndedMail `json:"vars"`
}

func (c *client) SendAuctionWonEmail(ctx bCtx.Ctx, email string, mail domain.AuctionEndedMail) error {
	return c.send(ctx, sendRequest{To: email, Template: templateAuctionWon, Vars: mail})
}

func (c *client) SendAuctionEndedEmail(ctx bCtx.Ctx, email string, mail domain.AuctionEndedMail) error {
	return c.send(ctx, sendRequest{To: email, Template: templateAuctionEnded, Vars: mail})
}

func (c *client) send(ctx bCtx.Ctx, req sendRequest) error {
	body, err := json.Marshal(req)
	if err != nil {
		return err
	}

	bo := backoff.NewExponential(200*time.Millisecond, 2*time.Second)
	var lastErr error
	for attempt := 0; attempt < sendAttempts; attempt++ {
		if attempt > 0 {
			if err := bo.Backoff(ctx); err != nil {
				return err
			}
		}
		if lastErr = c.post(ctx, body); lastErr == nil {
			return nil
		}
		ctx.WithFields(log.Fields{
			"err":      lastErr,
			"attempt":  attempt,
			"template": req.Template,
		}).Warn("mail send attempt failed")
	}
	return lastErr
}

func (c *client) post(ctx bCtx.Ctx, body []byte) error {
	ctx, cancel := bCtx.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, "POST", c.endpoint+"/v1/send", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apikey)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return ErrStatusCodeNotOk
	}
	return nil
}

// Noop drops every mail. Used in dev mode without a mail provider.
type Noop struct{}

func (Noop) SendAuctionWonEmail(bCtx.Ctx, string, domain.AuctionEndedMail) error   { return nil }
func (Noop) SendAuctionEndedEmail(bCtx.Ctx, string, domain.AuctionEndedMail) error { return nil }
