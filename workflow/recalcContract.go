package workflow

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"
)

// RecalcResult reports what a recompute call actually posted. A repeat
// call for an already-processed period returns a zero result.
type RecalcResult struct {
	ProcessedAmount decimal.Decimal `json:"processed_amount"`
	EntriesPosted   int             `json:"entries_posted"`
}

// RecalcContract is the external depreciation-recompute collaborator used
// by lifecycle transitions. Both operations must be idempotent per period;
// the duplicate checks live behind the contract, not in its callers.
//
// Two implementations exist: DepreciationProcessor runs the recompute
// in-process, HTTPRecalc calls out to a separate recalculation service.
type RecalcContract interface {
	CatchUpDepreciationToDate(ctx context.Context, companyId string, assetId int, date time.Time) (RecalcResult, error)
	ProcessMonthlyDepreciation(ctx context.Context, companyId string, month, year int) (RecalcResult, error)
}

// HTTPRecalc invokes a remote recalculation service. Used when monthly
// posting runs on dedicated workers instead of the API instance.
type HTTPRecalc struct {
	client *resty.Client
}

func NewHTTPRecalc(baseURL string, timeout time.Duration) *HTTPRecalc {
	client := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(timeout).
		SetRetryCount(2).
		SetRetryWaitTime(2 * time.Second)
	return &HTTPRecalc{client: client}
}

type catchUpRequest struct {
	CompanyId   string `json:"company_id"`
	AssetId     int    `json:"asset_id"`
	ThroughDate string `json:"through_date"`
}

type monthlyRequest struct {
	CompanyId string `json:"company_id"`
	Month     int    `json:"month"`
	Year      int    `json:"year"`
}

func (r *HTTPRecalc) CatchUpDepreciationToDate(ctx context.Context, companyId string, assetId int, date time.Time) (RecalcResult, error) {
	var result RecalcResult
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(catchUpRequest{
			CompanyId:   companyId,
			AssetId:     assetId,
			ThroughDate: date.Format("2006-01-02"),
		}).
		SetResult(&result).
		Post("/v1/depreciation/catch-up")
	if err != nil {
		return result, err
	}
	if resp.IsError() {
		return result, fmt.Errorf("recalc service catch-up returned %s: %s", resp.Status(), resp.String())
	}
	return result, nil
}

func (r *HTTPRecalc) ProcessMonthlyDepreciation(ctx context.Context, companyId string, month, year int) (RecalcResult, error) {
	var result RecalcResult
	resp, err := r.client.R().
		SetContext(ctx).
		SetBody(monthlyRequest{CompanyId: companyId, Month: month, Year: year}).
		SetResult(&result).
		Post("/v1/depreciation/monthly")
	if err != nil {
		return result, err
	}
	if resp.IsError() {
		return result, fmt.Errorf("recalc service monthly returned %s: %s", resp.Status(), resp.String())
	}
	return result, nil
}
