package integrations

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/flowsmith/flowsmith-backend/internal/domain"
	"github.com/flowsmith/flowsmith-backend/internal/platform/logger"
)

// RegisterBuiltins wires the adapters that ship with the server:
// WEBHOOK (outbound HTTP action), LOGGER (structured log action + event
// trigger), and FLOWSMITH (redirect closure, anonymous event trigger).
func RegisterBuiltins(r *Registry, baseLog *logger.Logger, httpClient *http.Client) error {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	log := baseLog.With("component", "BuiltinIntegrations")

	if err := r.Register(webhookIntegration(httpClient)); err != nil {
		return err
	}
	if err := r.Register(loggerIntegration(log)); err != nil {
		return err
	}
	return r.Register(flowsmithIntegration())
}

func mustTemplate(raw string) domain.SentenceTemplate {
	tpl, err := domain.NewSentenceTemplate(raw)
	if err != nil {
		panic(err)
	}
	return tpl
}

func mustField(code, inputType, label string, options []domain.FieldOption) domain.Field {
	f, err := domain.NewField(code, inputType, label, options)
	if err != nil {
		panic(err)
	}
	return f
}

func mustFilter(integrationCode, filterCode, backupSentence string, fields []domain.Field) domain.Filter {
	f, err := domain.NewFilter(integrationCode, filterCode, backupSentence, fields)
	if err != nil {
		panic(err)
	}
	return f
}

func webhookIntegration(client *http.Client) Integration {
	urlField := mustField("WEBHOOK_URL", "url", "Webhook URL", nil)
	urlField.Required = true
	bodyField := mustField("WEBHOOK_BODY", "text", "Request body", nil)

	send := ActionDef{
		Code:               "SEND_WEBHOOK",
		Sentence:           mustTemplate("Send a POST request to {{the webhook URL:WEBHOOK_URL}}"),
		Fields:             []domain.Field{urlField, bodyField},
		SupportsBackground: true,
		Handler: ActionHandlerFunc(func(ctx context.Context, call Call) error {
			target := call.Fields["WEBHOOK_URL"].Value
			if target == "" {
				return fmt.Errorf("WEBHOOK_URL is not set")
			}
			body := call.Fields["WEBHOOK_BODY"].Value
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewBufferString(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")
			resp, err := client.Do(req)
			if err != nil {
				return err
			}
			defer resp.Body.Close()
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 1<<16))
			if resp.StatusCode >= 400 {
				return fmt.Errorf("webhook responded with status %d", resp.StatusCode)
			}
			return nil
		}),
	}

	return Integration{
		Code:     "WEBHOOK",
		Name:     "Webhooks",
		Triggers: map[domain.Code]TriggerDef{},
		Actions:  map[domain.Code]ActionDef{send.Code: send},
		Closures: map[domain.ClosureCode]ClosureDef{},
	}
}

func loggerIntegration(log *logger.Logger) Integration {
	messageField := mustField("LOG_MESSAGE", "text", "Message", nil)
	messageField.Required = true

	write := ActionDef{
		Code:     "WRITE_LOG",
		Sentence: mustTemplate("Write {{a message:LOG_MESSAGE}} to the site log"),
		Fields:   []domain.Field{messageField},
		Handler: ActionHandlerFunc(func(_ context.Context, call Call) error {
			msg := call.Fields["LOG_MESSAGE"].Value
			if msg == "" {
				msg = call.Fields["LOG_MESSAGE"].Readable
			}
			log.Info("recipe log action", "message", msg)
			return nil
		}),
	}

	eventField := mustField("EVENT_NAME", "text", "Event name", nil)
	event := TriggerDef{
		Code:     "EVENT_LOGGED",
		Sentence: mustTemplate("{{an event:EVENT_NAME}} is logged"),
		Fields:   []domain.Field{eventField},
	}

	tokenField := mustField("TOKEN", "text", "Token", nil)
	tokenField.Required = true
	valueField := mustField("VALUE", "text", "Value", nil)
	valueMatches := mustFilter("LOGGER", "VALUE_MATCHES", "A token matches a value",
		[]domain.Field{tokenField, valueField})

	return Integration{
		Code:     "LOGGER",
		Name:     "Site Log",
		Triggers: map[domain.Code]TriggerDef{event.Code: event},
		Actions:  map[domain.Code]ActionDef{write.Code: write},
		Closures: map[domain.ClosureCode]ClosureDef{},
		Filters:  map[domain.Code]domain.Filter{valueMatches.FilterCode: valueMatches},
	}
}

func flowsmithIntegration() Integration {
	urlField := mustField("REDIRECT_URL", "url", "Redirect URL", nil)
	urlField.Required = true

	redirect := ClosureDef{
		Code:     "REDIRECT",
		Sentence: mustTemplate("Redirect the user to {{a URL:REDIRECT_URL}}"),
		Handler: ClosureHandlerFunc(func(_ context.Context, call Call) (ClosureResult, error) {
			target := call.Fields["REDIRECT_URL"].Value
			if target == "" {
				return ClosureResult{}, fmt.Errorf("REDIRECT_URL is not set")
			}
			return ClosureResult{RedirectURL: target}, nil
		}),
	}

	received := TriggerDef{
		Code:     "EVENT_RECEIVED",
		Sentence: mustTemplate("{{an event:EVENT_NAME}} is received"),
		Fields:   []domain.Field{mustField("EVENT_NAME", "text", "Event name", nil)},
	}

	return Integration{
		Code:     "FLOWSMITH",
		Name:     "Flowsmith",
		Triggers: map[domain.Code]TriggerDef{received.Code: received},
		Actions:  map[domain.Code]ActionDef{},
		Closures: map[domain.ClosureCode]ClosureDef{redirect.Code: redirect},
	}
}
