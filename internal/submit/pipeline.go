// Package submit sends reconciliation requests and interprets the replies.
package submit

import (
	"context"
	"fmt"
	"slices"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/sells-group/recon-cli/internal/model"
	"github.com/sells-group/recon-cli/pkg/reconsvc"
)

// User-facing messages.
const (
	MsgMissingAccountFile = "请选择账号文件"
	MsgMissingResultFile  = "请选择中签结果文件"
	MsgBusy               = "正在处理中，请稍候"
	BusyLabel             = "处理中..."
)

// Control is the UI control that triggers a submission. It shows a busy
// indicator and refuses new submissions until restored.
type Control interface {
	SetBusy(label string)
	Restore()
}

// Input holds the files chosen by the user. A nil file was not chosen.
type Input struct {
	Account *reconsvc.File
	Result  *reconsvc.File
	Fields  map[string]string
}

// Pipeline submits inputs to the reconciliation service, one at a time.
type Pipeline struct {
	client   reconsvc.Client
	inFlight atomic.Bool
}

// New creates a Pipeline over the given service client.
func New(client reconsvc.Client) *Pipeline {
	return &Pipeline{client: client}
}

// Busy reports whether a submission is in flight.
func (p *Pipeline) Busy() bool {
	return p.inFlight.Load()
}

// Submit validates that both files are present, sends them and interprets
// the reply. ctl may be nil. Whatever happens, ctl is restored before
// Submit returns.
func (p *Pipeline) Submit(ctx context.Context, in Input, ctl Control) model.Outcome {
	if in.Account == nil {
		return model.Failure(model.FailureMissingInput, MsgMissingAccountFile)
	}
	if in.Result == nil {
		return model.Failure(model.FailureMissingInput, MsgMissingResultFile)
	}

	if !p.inFlight.CompareAndSwap(false, true) {
		return model.Failure(model.FailureBusy, MsgBusy)
	}
	defer p.inFlight.Store(false)

	if ctl != nil {
		ctl.SetBusy(BusyLabel)
		defer ctl.Restore()
	}

	start := time.Now()
	resp, err := p.client.Match(ctx, reconsvc.MatchRequest{
		AccountFile: *in.Account,
		ResultFile:  *in.Result,
		Fields:      in.Fields,
	})
	if err != nil {
		zap.L().Error("submit: transport failure",
			zap.String("account_file", in.Account.Name),
			zap.String("result_file", in.Result.Name),
			zap.Error(err),
		)
		return model.Failure(model.FailureTransport, err.Error())
	}

	outcome := Interpret(resp)
	if outcome.OK() {
		zap.L().Info("submit: reconciliation complete",
			zap.String("request_id", resp.RequestID),
			zap.Stringer("result", outcome.Result()),
			zap.Duration("elapsed", time.Since(start)),
		)
	} else {
		zap.L().Warn("submit: service reported failure",
			zap.String("request_id", resp.RequestID),
			zap.String("message", outcome.Message()),
		)
	}
	return outcome
}

// Interpret turns a service reply into an outcome. Totals are derived from
// the rows; the service's own totals are only cross-checked. Rows without a
// status come from services that only report matches and count as matched.
func Interpret(resp *reconsvc.MatchResponse) model.Outcome {
	if resp == nil {
		return model.Failure(model.FailureTransport, "empty reply")
	}
	if !resp.Succeeded() {
		msg := resp.Message
		if msg == "" {
			msg = fmt.Sprintf("未知错误 (status=%s)", resp.Status)
		}
		return model.Failure(model.FailureService, msg)
	}

	result := model.NewResult(withStatus(resp.Data), resp.Exportable())
	warnInconsistencies(resp, result)
	return model.Success(result)
}

func withStatus(rows []model.Row) []model.Row {
	out := slices.Clone(rows)
	for i := range out {
		if out[i].Status == "" {
			out[i].Status = model.StatusMatched
		}
	}
	return out
}

func warnInconsistencies(resp *reconsvc.MatchResponse, result *model.Result) {
	log := zap.L().With(zap.String("request_id", resp.RequestID))

	if resp.TotalMatches != result.TotalMatches {
		log.Warn("submit: total_matches disagrees with rows",
			zap.Int("reported", resp.TotalMatches),
			zap.Int("derived", result.TotalMatches),
		)
	}
	if resp.TotalUnmatched != nil && *resp.TotalUnmatched != result.TotalUnmatched {
		log.Warn("submit: total_unmatched disagrees with rows",
			zap.Int("reported", *resp.TotalUnmatched),
			zap.Int("derived", result.TotalUnmatched),
		)
	}
	if resp.TotalWinCount != result.TotalWinCount {
		log.Warn("submit: total_win_count disagrees with rows",
			zap.Int("reported", resp.TotalWinCount),
			zap.Int("derived", result.TotalWinCount),
		)
	}
	if dups := result.DuplicateAccounts(); len(dups) > 0 {
		log.Warn("submit: duplicate accounts in reply", zap.Strings("accounts", dups))
	}
	for _, row := range result.Rows {
		if err := row.Validate(); err != nil {
			log.Warn("submit: invalid row", zap.Error(err))
		}
	}
}
