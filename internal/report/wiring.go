package report

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/autoscaling"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/costexplorer"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	"github.com/aws/aws-sdk-go-v2/service/sns"

	"github.com/tsanders-rh/costctl/internal/alert"
	"github.com/tsanders-rh/costctl/internal/costs"
	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/internal/observe"
	"github.com/tsanders-rh/costctl/internal/scaling"
	"github.com/tsanders-rh/costctl/internal/storage"
)

// NewAWSSources wires a fleet's observers against real AWS clients,
// scoped to the fleet's region. The Pricing API is only served out of
// us-east-1 regardless of the fleet region. An empty topic ARN leaves
// alert dispatch disabled.
func NewAWSSources(base aws.Config, f *fleet.Fleet, topicARN string) Sources {
	cfg := base.Copy()
	cfg.Region = f.Region

	pricingCfg := base.Copy()
	pricingCfg.Region = "us-east-1"

	ec2Client := ec2.NewFromConfig(cfg)

	return Sources{
		Prices:      observe.NewPriceObserver(ec2Client, pricing.NewFromConfig(pricingCfg), f),
		Instances:   observe.NewInstanceLister(ec2Client, f),
		Utilization: observe.NewUtilizationObserver(cloudwatch.NewFromConfig(cfg), f),
		Groups:      scaling.NewClient(autoscaling.NewFromConfig(cfg), f),
		Insights:    costs.NewObserver(costexplorer.NewFromConfig(cfg), f),
		Storage:     storage.NewAnalyzer(ec2Client, f),
		Alerts:      alert.NewPublisher(sns.NewFromConfig(cfg), topicARN),
	}
}

// NewAWSAssemblerFactory returns a factory producing fully wired
// assemblers, one per fleet
func NewAWSAssemblerFactory(base aws.Config, topicARN string) func(f *fleet.Fleet) *Assembler {
	return func(f *fleet.Fleet) *Assembler {
		return NewAssembler(f, NewAWSSources(base, f, topicARN))
	}
}
