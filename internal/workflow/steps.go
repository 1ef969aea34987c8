package workflow

import (
	"encoding/json"
	"fmt"
	"net/url"

	"radio-activator/config"
)

// Fixed device metadata the dealer app reports on every run.
const (
	appVersion      = "3.1.0"
	deviceCategory  = "iPhone"
	deviceModel     = "iPhone 6 Plus"
	deviceOSVersion = "12.5.7"
	deviceLatitude  = "32.37436705"
	deviceLongitude = "-86.210313195"

	eligibilityAddress = "395 EASTERN BLVD, MONTGOMERY, AL 36117, USA"
)

// StepInput carries the per-run values a step may need when building its
// request body.
type StepInput struct {
	RadioID  string
	DeviceID string
	Session  *Session
}

// Step is one entry in the declarative workflow table. URL is either a
// path on the vendor base host or an absolute URL for the one step that
// targets a different host.
type Step struct {
	Name             string
	URL              string
	Headers          map[string]string
	Query            url.Values
	Body             func(in StepInput) url.Values
	Extract          func(body []byte, s *Session) error
	RequiresSequence bool
}

// Steps builds the fixed, ordered activation sequence. The order is part
// of the vendor contract and must not change.
func Steps(cfg *config.Config) []Step {
	return []Step{
		{
			Name: "Login",
			URL:  cfg.Endpoints.Login,
			Headers: map[string]string{
				"X-Voltmx-Platform-Type": "ios",
				"X-Voltmx-SDK-Type":      "js",
				"X-Voltmx-SDK-Version":   "9.5.36",
				"X-Voltmx-App-Key":       cfg.Credentials.AppKey,
				"X-Voltmx-App-Secret":    cfg.Credentials.AppSecret,
			},
			Body:    func(StepInput) url.Values { return url.Values{} },
			Extract: extractAuthToken,
		},
		{
			Name: "VersionCheck",
			URL:  cfg.Endpoints.VersionControl,
			Body: func(StepInput) url.Values {
				return url.Values{
					"deviceCategory": {deviceCategory},
					"appver":         {appVersion},
					"deviceLocale":   {"en_US"},
					"deviceModel":    {deviceModel},
					"deviceVersion":  {deviceOSVersion},
					"deviceType":     {""},
				}
			},
		},
		{
			Name: "RetrieveProperties",
			URL:  cfg.Endpoints.GetProperties,
			Body: func(StepInput) url.Values { return url.Values{} },
		},
		{
			Name: "UpdateDeviceStatus",
			URL:  cfg.Endpoints.SATRefresh,
			Body: func(in StepInput) url.Values {
				return url.Values{
					"deviceId":          {in.RadioID},
					"appVersion":        {appVersion},
					"lng":               {deviceLongitude},
					"deviceID":          {in.DeviceID},
					"provisionPriority": {"2"},
					"provisionType":     {"activate"},
					"lat":               {deviceLatitude},
				}
			},
			Extract: extractSequenceValue,
		},
		{
			Name: "FetchCRMInformation",
			URL:  cfg.Endpoints.CRMInfo,
			Body: func(in StepInput) url.Values {
				return url.Values{
					"seqVal":   {in.Session.SequenceValue},
					"deviceId": {in.RadioID},
				}
			},
			RequiresSequence: true,
		},
		{
			Name: "UpdateExternalDatabase",
			URL:  cfg.Endpoints.DBUpdate,
			Body: func(in StepInput) url.Values {
				return url.Values{
					"OM_ELIGIBILITY_STATUS": {"Eligible"},
					"appVersion":            {appVersion},
					"flag":                  {"failure"},
					"Radio_ID":              {in.RadioID},
					"deviceID":              {in.DeviceID},
					"G_PLACES_REQUEST":      {""},
					"OS_Version":            {deviceCategory + " " + deviceOSVersion},
					"G_PLACES_RESPONSE":     {""},
					"Confirmation_Status":   {"SUCCESS"},
					"seqVal":                {in.Session.SequenceValue},
				}
			},
			RequiresSequence: true,
		},
		{
			Name: "BlockDevice",
			URL:  cfg.Endpoints.BlockList,
			Body: func(in StepInput) url.Values {
				return url.Values{"deviceId": {in.DeviceID}}
			},
		},
		{
			Name:  "ExternalEligibilityCheck",
			URL:   cfg.Vendor.EligibilityURL,
			Query: url.Values{"google_addr": {eligibilityAddress}},
			Body:  func(StepInput) url.Values { return url.Values{} },
		},
		{
			Name: "CreateAccount",
			URL:  cfg.Endpoints.CreateAccount,
			Body: func(in StepInput) url.Values {
				return url.Values{
					"seqVal":         {in.Session.SequenceValue},
					"deviceId":       {in.RadioID},
					"oracleCXFailed": {"1"},
					"appVersion":     {appVersion},
				}
			},
			RequiresSequence: true,
		},
		{
			Name: "RefreshForConfirmedCustomer",
			URL:  cfg.Endpoints.RefreshForCC,
			Body: func(in StepInput) url.Values {
				return url.Values{
					"deviceId":          {in.RadioID},
					"provisionPriority": {"2"},
					"appVersion":        {appVersion},
					"device_Type":       {deviceCategory + " " + deviceModel},
					"deviceID":          {in.DeviceID},
					"os_Version":        {deviceCategory + " " + deviceOSVersion},
					"provisionType":     {"activate"},
				}
			},
		},
	}
}

// extractAuthToken pulls the authorization token out of the login response
// and stores it on the session.
func extractAuthToken(body []byte, s *Session) error {
	var payload struct {
		ClaimsToken struct {
			Value string `json:"value"`
		} `json:"claims_token"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrAuthenticationFailed, err)
	}
	if payload.ClaimsToken.Value == "" {
		return ErrAuthenticationFailed
	}
	s.AuthToken = payload.ClaimsToken.Value
	return nil
}

// extractSequenceValue pulls the provisioning sequence value out of the
// device-status response and stores it on the session.
func extractSequenceValue(body []byte, s *Session) error {
	var payload struct {
		SeqValue string `json:"seqValue"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return fmt.Errorf("%w: %v", ErrSequenceMissing, err)
	}
	if payload.SeqValue == "" {
		return ErrSequenceMissing
	}
	s.SequenceValue = payload.SeqValue
	return nil
}
