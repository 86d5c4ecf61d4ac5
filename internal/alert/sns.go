package alert

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/tsanders-rh/costctl/pkg/types"
)

// TopicAPI is the slice of the SNS API the publisher needs
type TopicAPI interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

// Publisher dispatches cost alerts to an SNS topic. At most one publish per
// report, and only when the report carries critical recommendations.
type Publisher struct {
	sns      TopicAPI
	topicARN string
}

// NewPublisher creates a new alert publisher. An empty topic ARN disables
// dispatch entirely.
func NewPublisher(api TopicAPI, topicARN string) *Publisher {
	return &Publisher{
		sns:      api,
		topicARN: topicARN,
	}
}

// payload is the JSON body published to the topic
type payload struct {
	AlertType       string                 `json:"alert_type"`
	Timestamp       time.Time              `json:"timestamp"`
	ReportID        string                 `json:"report_id"`
	Fleet           string                 `json:"fleet,omitempty"`
	Recommendations []types.Recommendation `json:"recommendations"`
}

// Notify publishes a single critical-cost alert for the report. Returns
// whether an alert was dispatched. No critical items, or no configured
// topic, means no publish and no error.
func (p *Publisher) Notify(ctx context.Context, report *types.CostReport) (bool, error) {
	critical := report.CriticalRecommendations()
	if len(critical) == 0 {
		return false, nil
	}

	if p.topicARN == "" {
		log.Printf("No SNS topic configured, skipping critical alert for report %s", report.ID)
		return false, nil
	}

	body, err := json.MarshalIndent(payload{
		AlertType:       "cost_optimization",
		Timestamp:       report.GeneratedAt,
		ReportID:        report.ID,
		Fleet:           report.Fleet,
		Recommendations: critical,
	}, "", "  ")
	if err != nil {
		return false, fmt.Errorf("marshal alert payload: %w", err)
	}

	_, err = p.sns.Publish(ctx, &sns.PublishInput{
		TopicArn: aws.String(p.topicARN),
		Subject:  aws.String(fmt.Sprintf("Cost Alert - %s", report.Fleet)),
		Message:  aws.String(string(body)),
	})
	if err != nil {
		return false, fmt.Errorf("publish alert: %w", err)
	}

	return true, nil
}
