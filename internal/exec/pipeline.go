package exec

import (
	"context"
	"sync"

	"github.com/mlld-lang/mlld-go/internal/env"
	"github.com/mlld-lang/mlld-go/internal/errors"
	"github.com/mlld-lang/mlld-go/internal/iface"
	"github.com/mlld-lang/mlld-go/internal/value"
)

// RunPipeline implements spec §4.5's pipeline engine: stages run in
// order, each stage's security descriptor is the union of its inputs'
// descriptors merged with the stage executable's own, and a stage
// element that is itself a slice of stages denotes parallel fan-out
// (run concurrently, results reassembled in declaration order).
// retrySource re-invokes the body that produced the initial input,
// for stages that request `retry`.
func RunPipeline(ctx context.Context, stages []value.PipelineStage, input *value.StructuredValue, e *env.Environment, evalr BodyEvaluator, hooks iface.HookManager, retrySource func() (interface{}, error)) (*value.StructuredValue, error) {
	current := input
	budget := DefaultGuardRetryBudget

	for stageIdx := 0; stageIdx < len(stages); stageIdx++ {
		stage := stages[stageIdx]

		if stage.IsParallel() {
			results := make([]*value.StructuredValue, len(stage.Parallel))
			errs := make([]error, len(stage.Parallel))
			var wg sync.WaitGroup
			for i, sub := range stage.Parallel {
				wg.Add(1)
				go func(i int, sub value.PipelineStage) {
					defer wg.Done()
					out, err := runStage(ctx, sub, current, e, evalr, hooks)
					results[i] = out
					errs[i] = err
				}(i, sub)
			}
			wg.Wait()
			for _, err := range errs {
				if err != nil {
					return nil, err
				}
			}
			combined := make([]interface{}, len(results))
			descs := []*value.SecurityDescriptor{current.Ctx}
			for i, r := range results {
				combined[i] = value.AsData(r)
				if r != nil {
					descs = append(descs, r.Ctx)
				}
			}
			wrapped := value.WrapExecResult(combined, value.WrapOptions{SourceType: "pipeline-parallel"})
			wrapped.Ctx = value.MergeSecurityDescriptors(descs...)
			current = wrapped
			continue
		}

		out, err := runStage(ctx, stage, current, e, evalr, hooks)
		if err != nil {
			if isRetryRequest(err) {
				budget--
				if budget < 0 {
					return nil, errors.New(errors.KindPipelineRetryExh, errors.Location{}, "pipeline",
						"pipeline retry budget exhausted")
				}
				if retrySource == nil {
					return nil, errors.New(errors.KindPipelineRetryExh, errors.Location{}, "pipeline",
						"stage requested retry but the source is not retryable")
				}
				fresh, err := retrySource()
				if err != nil {
					return nil, err
				}
				current = value.WrapExecResult(fresh, value.WrapOptions{})
				stageIdx--
				continue
			}
			return nil, errors.Wrap(errors.KindPipelineStageFail, err, errors.Location{}, "pipeline", "", "pipeline stage %d failed", stageIdx)
		}
		if out != nil {
			merged := *out
			merged.Ctx = value.MergeSecurityDescriptors(current.Ctx, out.Ctx)
			out = &merged
		}
		current = out
	}
	return current, nil
}

func runStage(ctx context.Context, stage value.PipelineStage, input *value.StructuredValue, e *env.Environment, evalr BodyEvaluator, hooks iface.HookManager) (*value.StructuredValue, error) {
	inv, ok := stage.Callable.(InvocationNode)
	if !ok {
		return input, nil
	}
	engine := New(evalr, hooks)
	return engine.Invoke(ctx, inv, e)
}

// retryRequest is a sentinel a stage's evaluation returns to ask the
// engine to re-invoke the pipeline's source (spec §4.5 "Stages may
// request retry").
type retryRequest struct{ reason string }

func (r *retryRequest) Error() string { return "pipeline retry requested: " + r.reason }

// RequestRetry builds the sentinel error a stage raises to ask for a
// retry; the reason appears only in the sentinel's error message.
func RequestRetry(reason string) error { return &retryRequest{reason: reason} }

func isRetryRequest(err error) bool {
	_, ok := err.(*retryRequest)
	return ok
}
