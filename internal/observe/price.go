package observe

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	ec2types "github.com/aws/aws-sdk-go-v2/service/ec2/types"
	"github.com/aws/aws-sdk-go-v2/service/pricing"
	pricingtypes "github.com/aws/aws-sdk-go-v2/service/pricing/types"
	"github.com/shopspring/decimal"

	"github.com/tsanders-rh/costctl/internal/fleet"
	"github.com/tsanders-rh/costctl/pkg/types"
)

// SpotPriceAPI is the slice of the EC2 API the price observer needs
type SpotPriceAPI interface {
	DescribeSpotPriceHistory(ctx context.Context, params *ec2.DescribeSpotPriceHistoryInput, optFns ...func(*ec2.Options)) (*ec2.DescribeSpotPriceHistoryOutput, error)
}

// PricingAPI is the slice of the Pricing API the price observer needs
type PricingAPI interface {
	GetProducts(ctx context.Context, params *pricing.GetProductsInput, optFns ...func(*pricing.Options)) (*pricing.GetProductsOutput, error)
}

// PriceObserver queries spot and on-demand prices for the fleet's candidate
// instance types. A lookup failure for one instance type degrades to a
// per-type error entry; it never aborts the batch.
type PriceObserver struct {
	spot    SpotPriceAPI
	pricing PricingAPI
	fleet   *fleet.Fleet
}

// NewPriceObserver creates a new price observer
func NewPriceObserver(spot SpotPriceAPI, pricingAPI PricingAPI, f *fleet.Fleet) *PriceObserver {
	return &PriceObserver{
		spot:    spot,
		pricing: pricingAPI,
		fleet:   f,
	}
}

// Observe returns the most recent spot price per (instance type, zone) pair
// within the window, plus per-type zone statistics and the on-demand
// comparison price. The returned error covers batch-level problems only;
// per-type failures land in that type's Error field.
func (o *PriceObserver) Observe(ctx context.Context, window types.Window) ([]types.PricePoint, map[string]*types.SpotPriceStats, error) {
	if len(o.fleet.InstanceTypes.Allowlist) == 0 {
		return nil, nil, fmt.Errorf("fleet %s has no instance types configured", o.fleet.Name)
	}

	points := []types.PricePoint{}
	analysis := make(map[string]*types.SpotPriceStats, len(o.fleet.InstanceTypes.Allowlist))

	for _, instanceType := range o.fleet.InstanceTypes.Allowlist {
		stats, typePoints, err := o.observeType(ctx, instanceType, window)
		if err != nil {
			log.Printf("Price lookup failed for %s: %v", instanceType, err)
			analysis[instanceType] = &types.SpotPriceStats{
				InstanceType: instanceType,
				Error:        err.Error(),
			}
			continue
		}

		analysis[instanceType] = stats
		points = append(points, typePoints...)
	}

	return points, analysis, nil
}

// observeType gathers spot history and the on-demand price for one type
func (o *PriceObserver) observeType(ctx context.Context, instanceType string, window types.Window) (*types.SpotPriceStats, []types.PricePoint, error) {
	history, err := o.spotHistory(ctx, instanceType, window)
	if err != nil {
		return nil, nil, fmt.Errorf("describe spot price history: %w", err)
	}

	byZone := make(map[string][]types.PricePoint)
	for _, entry := range history {
		price, err := decimal.NewFromString(aws.ToString(entry.SpotPrice))
		if err != nil {
			continue
		}
		zone := aws.ToString(entry.AvailabilityZone)
		byZone[zone] = append(byZone[zone], types.PricePoint{
			InstanceType: instanceType,
			Zone:         zone,
			PricePerHour: price,
			ObservedAt:   aws.ToTime(entry.Timestamp),
		})
	}

	onDemand := o.onDemandPrice(ctx, instanceType)

	stats := &types.SpotPriceStats{
		InstanceType:  instanceType,
		Zones:         make(map[string]types.ZonePriceStats, len(byZone)),
		OnDemandPrice: onDemand,
	}

	zones := make([]string, 0, len(byZone))
	for zone := range byZone {
		zones = append(zones, zone)
	}
	sort.Strings(zones)

	maxSpot := decimal.NewFromFloat(o.fleet.Thresholds.MaxSpotPrice)

	latest := []types.PricePoint{}
	bestCurrent := decimal.Zero

	// Sorted zone order makes ties resolve to the first zone by name
	for _, zone := range zones {
		zonePoints := byZone[zone]

		// Most recent sample wins; equal timestamps leave provider order
		sort.SliceStable(zonePoints, func(i, j int) bool {
			return zonePoints[i].ObservedAt.Before(zonePoints[j].ObservedAt)
		})

		current := zonePoints[len(zonePoints)-1]
		latest = append(latest, current)

		stats.Zones[zone] = zoneStats(zonePoints, current.PricePerHour)

		// Zones priced above the fleet's spot cap are recorded but never
		// recommended
		if maxSpot.IsPositive() && current.PricePerHour.GreaterThan(maxSpot) {
			continue
		}

		if stats.BestZone == "" || current.PricePerHour.LessThan(bestCurrent) {
			stats.BestZone = zone
			bestCurrent = current.PricePerHour
		}
	}

	if stats.BestZone != "" && onDemand.IsPositive() {
		ratio := bestCurrent.Div(onDemand)
		savings, _ := decimal.NewFromInt(1).Sub(ratio).Mul(decimal.NewFromInt(100)).Float64()
		stats.MaxSavingsPercent = savings
	}

	sort.Slice(latest, func(i, j int) bool { return latest[i].Zone < latest[j].Zone })

	return stats, latest, nil
}

// spotHistory pages through the spot price history for one instance type
func (o *PriceObserver) spotHistory(ctx context.Context, instanceType string, window types.Window) ([]ec2types.SpotPrice, error) {
	var history []ec2types.SpotPrice

	input := &ec2.DescribeSpotPriceHistoryInput{
		InstanceTypes:       []ec2types.InstanceType{ec2types.InstanceType(instanceType)},
		ProductDescriptions: []string{"Linux/UNIX"},
		StartTime:           aws.Time(window.Start),
		EndTime:             aws.Time(window.End),
	}

	for {
		out, err := o.spot.DescribeSpotPriceHistory(ctx, input)
		if err != nil {
			return nil, err
		}

		history = append(history, out.SpotPriceHistory...)

		if aws.ToString(out.NextToken) == "" {
			break
		}
		input.NextToken = out.NextToken
	}

	return history, nil
}

// onDemandPrice resolves the on-demand price via the Pricing API, falling
// back to the fleet's static table when the API is unavailable.
func (o *PriceObserver) onDemandPrice(ctx context.Context, instanceType string) decimal.Decimal {
	if o.pricing != nil {
		price, err := o.lookupOnDemandPrice(ctx, instanceType)
		if err == nil && price.IsPositive() {
			return price
		}
		if err != nil {
			log.Printf("Pricing API lookup failed for %s, using fallback table: %v", instanceType, err)
		}
	}

	if fallback, ok := o.fleet.OnDemandFallback[instanceType]; ok {
		return decimal.NewFromFloat(fallback)
	}

	return decimal.Zero
}

func (o *PriceObserver) lookupOnDemandPrice(ctx context.Context, instanceType string) (decimal.Decimal, error) {
	termMatch := func(field, value string) pricingtypes.Filter {
		return pricingtypes.Filter{
			Type:  pricingtypes.FilterTypeTermMatch,
			Field: aws.String(field),
			Value: aws.String(value),
		}
	}

	out, err := o.pricing.GetProducts(ctx, &pricing.GetProductsInput{
		ServiceCode: aws.String("AmazonEC2"),
		Filters: []pricingtypes.Filter{
			termMatch("instanceType", instanceType),
			termMatch("location", regionLocation(o.fleet.Region)),
			termMatch("tenancy", "Shared"),
			termMatch("operatingSystem", "Linux"),
			termMatch("preInstalledSw", "NA"),
			termMatch("capacitystatus", "Used"),
		},
	})
	if err != nil {
		return decimal.Zero, fmt.Errorf("get products: %w", err)
	}

	for _, item := range out.PriceList {
		price, err := parseOnDemandPrice(item)
		if err == nil && price.IsPositive() {
			return price, nil
		}
	}

	return decimal.Zero, fmt.Errorf("no on-demand price found for %s", instanceType)
}

// parseOnDemandPrice extracts the USD per-hour rate from one Pricing API
// price list document.
func parseOnDemandPrice(item string) (decimal.Decimal, error) {
	var doc struct {
		Terms struct {
			OnDemand map[string]struct {
				PriceDimensions map[string]struct {
					PricePerUnit map[string]string `json:"pricePerUnit"`
				} `json:"priceDimensions"`
			} `json:"OnDemand"`
		} `json:"terms"`
	}

	if err := json.Unmarshal([]byte(item), &doc); err != nil {
		return decimal.Zero, fmt.Errorf("parse price list item: %w", err)
	}

	for _, term := range doc.Terms.OnDemand {
		for _, dim := range term.PriceDimensions {
			if usd, ok := dim.PricePerUnit["USD"]; ok {
				return decimal.NewFromString(usd)
			}
		}
	}

	return decimal.Zero, fmt.Errorf("no USD price dimension")
}

// zoneStats computes window statistics for one zone's price series
func zoneStats(points []types.PricePoint, current decimal.Decimal) types.ZonePriceStats {
	min := points[0].PricePerHour
	max := points[0].PricePerHour
	sum := decimal.Zero

	for _, p := range points {
		if p.PricePerHour.LessThan(min) {
			min = p.PricePerHour
		}
		if p.PricePerHour.GreaterThan(max) {
			max = p.PricePerHour
		}
		sum = sum.Add(p.PricePerHour)
	}

	stats := types.ZonePriceStats{
		CurrentPrice: current,
		AvgPrice:     sum.Div(decimal.NewFromInt(int64(len(points)))).Round(6),
		MinPrice:     min,
		MaxPrice:     max,
	}

	if min.IsPositive() {
		volatility, _ := max.Sub(min).Div(min).Float64()
		stats.Volatility = volatility
	}

	return stats
}

// Savings builds per-type savings estimates from a completed price
// analysis, using each type's best-zone current price. Types with errors or
// no on-demand price are skipped. Output is sorted by instance type so two
// runs over identical inputs produce identical lists.
func Savings(analysis map[string]*types.SpotPriceStats) []types.SavingsEstimate {
	estimates := []types.SavingsEstimate{}

	for _, stats := range analysis {
		if stats.Error != "" || stats.BestZone == "" || !stats.OnDemandPrice.IsPositive() {
			continue
		}

		spot := stats.Zones[stats.BestZone].CurrentPrice
		hourly := stats.OnDemandPrice.Sub(spot)
		percent, _ := hourly.Div(stats.OnDemandPrice).Mul(decimal.NewFromInt(100)).Float64()

		estimates = append(estimates, types.SavingsEstimate{
			InstanceType:   stats.InstanceType,
			SpotPrice:      spot,
			OnDemandPrice:  stats.OnDemandPrice,
			HourlySavings:  hourly,
			DailySavings:   hourly.Mul(decimal.NewFromInt(24)),
			MonthlySavings: hourly.Mul(decimal.NewFromInt(24 * 30)),
			SavingsPercent: percent,
		})
	}

	sort.Slice(estimates, func(i, j int) bool {
		return estimates[i].InstanceType < estimates[j].InstanceType
	})

	return estimates
}

// regionLocation maps a region code to the Pricing API location name.
// The Pricing API keys offers by human-readable location, not region code.
func regionLocation(region string) string {
	locations := map[string]string{
		"us-east-1":    "US East (N. Virginia)",
		"us-east-2":    "US East (Ohio)",
		"us-west-1":    "US West (N. California)",
		"us-west-2":    "US West (Oregon)",
		"eu-west-1":    "EU (Ireland)",
		"eu-central-1": "EU (Frankfurt)",
	}

	if loc, ok := locations[region]; ok {
		return loc
	}
	return region
}
