package controller

import (
	"context"
	"fmt"

	"github.com/aretw0/arbor/pkg/domain"
	"github.com/aretw0/arbor/pkg/node"
	"github.com/aretw0/arbor/pkg/registry"
)

// Validation is the outcome of validating one data-bound node.
type Validation struct {
	NodeID   string           `json:"node_id"`
	Root     string           `json:"root"`
	Source   string           `json:"source"`
	Error    domain.ErrorInfo `json:"error"`
	Verdicts []domain.Verdict `json:"verdicts,omitempty"`
}

// ValidationReport collects the validations of a ValidateAll call.
type ValidationReport struct {
	OK      bool         `json:"ok"`
	Results []Validation `json:"results"`
}

// CommitReport is the outcome of a Commit call.
type CommitReport struct {
	Validation *ValidationReport `json:"validation"`
	Responses  map[string]any    `json:"responses,omitempty"`
}

// ValidateAll re-validates the current value of every node bound to one of
// sources, re-parses it and notifies the rendering collaborator so badges are
// refreshed. Report.OK is false when any node failed validation.
func (c *Controller) ValidateAll(ctx context.Context, sources []string) (*ValidationReport, error) {
	report := &ValidationReport{OK: true}
	for _, source := range sources {
		nodes, err := c.Search(map[string]any{domain.KeyDatasource: source})
		if err != nil {
			return nil, err
		}
		for _, n := range nodes {
			d := n.DataNode()
			if d == nil {
				continue
			}
			verdicts := d.Validate(ctx, d.Data())
			n.Parse(ctx)
			info := d.ErrorInfo()
			if info.Failed() {
				report.OK = false
			}
			report.Results = append(report.Results, Validation{
				NodeID:   n.ID(),
				Root:     n.RootName(),
				Source:   source,
				Error:    info,
				Verdicts: verdicts,
			})
			if err := n.SendMessage(ctx, map[string]any{"validated": !info.Failed(), "error": info}); err != nil {
				c.logger.Warn("validation message failed", "node_id", n.ID(), "err", err)
			}
		}
	}
	return report, nil
}

// Commit validates sources and then hands each source's current value to the
// data.commit plugins, once per source. The data.commit.could plugins gate
// each submission; a rejection aborts with ErrCommitRejected.
func (c *Controller) Commit(ctx context.Context, sources []string) (*CommitReport, error) {
	validation, err := c.ValidateAll(ctx, sources)
	if err != nil {
		return nil, err
	}
	report := &CommitReport{Validation: validation, Responses: make(map[string]any)}
	if !validation.OK {
		return report, fmt.Errorf("%w: validation failed", domain.ErrCommitRejected)
	}

	for _, source := range sources {
		d, err := c.boundData(source)
		if err != nil {
			return report, err
		}
		if d == nil {
			continue
		}

		// 1. Gate.
		var rejected *domain.Verdict
		d.Plugins().Execute(ctx, domain.PluginDataCommitCould, registry.ExecuteOptions{
			AfterExecute: func(rec registry.Record) registry.Control {
				if v, ok := domain.AsVerdict(rec.Result); ok && !v.Status {
					rejected = &v
					return registry.Control{Stop: true}
				}
				return registry.Control{}
			},
		})
		if rejected != nil {
			return report, fmt.Errorf("%w: %s %s", domain.ErrCommitRejected, source, rejected.Code)
		}

		// 2. Submit.
		res := d.Plugins().Execute(ctx, domain.PluginDataCommit, registry.ExecuteOptions{})
		if errs := res.Errors(); len(errs) > 0 {
			return report, fmt.Errorf("failed to commit %s: %w", source, errs[0])
		}
		if last, ok := res.Last(); ok {
			report.Responses[source] = last
		}
	}
	return report, nil
}

// boundData returns the data node of the first node bound to source.
func (c *Controller) boundData(source string) (*node.DataNode, error) {
	nodes, err := c.Search(map[string]any{domain.KeyDatasource: source})
	if err != nil {
		return nil, err
	}
	for _, n := range nodes {
		if d := n.DataNode(); d != nil {
			return d, nil
		}
	}
	return nil, nil
}
