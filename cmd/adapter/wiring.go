package main

import (
	"github.com/vcon-dev/vcon-telephony-adapters/internal/config"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/fetch"
	"github.com/vcon-dev/vcon-telephony-adapters/internal/webhook"
)

// newFetcher builds the audio fetcher for a platform. Returns nil when
// downloading is disabled; the builder then emits URL references only.
func newFetcher(cfg config.Config, platform string) fetch.Fetcher {
	if !cfg.App.DownloadRecordings {
		return nil
	}
	client := fetch.NewClient()
	switch platform {
	case "twilio":
		return &fetch.Twilio{
			Client:     client,
			AccountSID: cfg.Twilio.AccountSID,
			AuthToken:  cfg.Twilio.AuthToken,
			Format:     cfg.App.RecordingFormat,
		}
	case "freeswitch":
		return &fetch.FreeSwitch{
			Client:         client,
			RecordingsPath: cfg.FreeSwitch.RecordingsPath,
			URLBase:        cfg.FreeSwitch.RecordingsURL,
			Format:         cfg.App.RecordingFormat,
		}
	case "asterisk":
		return &fetch.Asterisk{
			Client:         client,
			ARIBaseURL:     cfg.Asterisk.ARIURL,
			ARIUsername:    cfg.Asterisk.ARIUsername,
			ARIPassword:    cfg.Asterisk.ARIPassword,
			RecordingsPath: cfg.Asterisk.RecordingsPath,
			Format:         cfg.App.RecordingFormat,
		}
	case "telnyx":
		return &fetch.Telnyx{
			Client: client,
			APIKey: cfg.Telnyx.APIKey,
			Format: cfg.App.RecordingFormat,
		}
	case "bandwidth":
		return &fetch.Bandwidth{
			Client:   client,
			Username: cfg.Bandwidth.WebhookUsername,
			Password: cfg.Bandwidth.WebhookPassword,
		}
	default:
		return nil
	}
}

// newAuthenticator builds the webhook signature check for a platform.
// Validation is opt-in per platform; the default accepts everything.
func newAuthenticator(cfg config.Config, platform string) webhook.Authenticator {
	switch platform {
	case "twilio":
		if cfg.Twilio.Validate {
			return &webhook.TwilioAuthenticator{
				AuthToken:   cfg.Twilio.AuthToken,
				URLOverride: cfg.Twilio.WebhookURL,
			}
		}
	case "freeswitch":
		if cfg.FreeSwitch.Validate {
			return &webhook.HMACAuthenticator{
				Secret: cfg.FreeSwitch.WebhookSecret,
				Header: "X-FreeSWITCH-Signature",
			}
		}
	case "asterisk":
		if cfg.Asterisk.Validate {
			return &webhook.HMACAuthenticator{
				Secret: cfg.Asterisk.WebhookSecret,
				Header: "X-Asterisk-Signature",
			}
		}
	case "telnyx":
		if cfg.Telnyx.Validate {
			return &webhook.Ed25519Authenticator{PublicKey: cfg.Telnyx.PublicKey}
		}
	case "bandwidth":
		if cfg.Bandwidth.Validate {
			return &webhook.BasicAuthenticator{
				Username: cfg.Bandwidth.WebhookUsername,
				Password: cfg.Bandwidth.WebhookPassword,
			}
		}
	}
	return webhook.AllowAll{}
}
