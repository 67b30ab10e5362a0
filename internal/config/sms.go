package config

// SMSConfig drives the offline fallback: when the backend is unreachable the
// client texts the hotline numbers directly.
type SMSConfig struct {
	Provider       string        `yaml:"provider"`
	Twilio         *TwilioConfig `yaml:"twilio"`
	AWS            *AWSSNSConfig `yaml:"aws"`
	HotlineNumbers []string      `yaml:"hotline_numbers"`
}

type TwilioConfig struct {
	AccountSID string `yaml:"account_sid"`
	AuthToken  string `yaml:"auth_token"`
	// FromNumber is a phone number or a messaging service SID.
	FromNumber string `yaml:"from_number"`
}

type AWSSNSConfig struct {
	Region   string `yaml:"region"`
	SenderID string `yaml:"sender_id"`
}

func loadSMSConfig() *SMSConfig {
	return &SMSConfig{
		Provider: getEnv("SMS_PROVIDER", "twilio"),
		Twilio: &TwilioConfig{
			AccountSID: getEnv("TWILIO_ACCOUNT_SID", ""),
			AuthToken:  getEnv("TWILIO_AUTH_TOKEN", ""),
			FromNumber: getEnv("TWILIO_FROM_NUMBER", ""),
		},
		AWS: &AWSSNSConfig{
			Region:   getEnv("AWS_REGION", "ap-southeast-1"),
			SenderID: getEnv("AWS_SNS_SENDER_ID", ""),
		},
		HotlineNumbers: getEnvAsSlice("SMS_HOTLINE_NUMBERS", []string{"911"}),
	}
}
