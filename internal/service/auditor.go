package service

import (
	"context"
	"crypto/md5"
	"encoding/binary"
	"encoding/hex"
	"fmt"
	"math"
	"strings"

	"github.com/minkyo/topiko/internal/domain"
	"github.com/minkyo/topiko/internal/logger"
)

// auditSampleLimit caps how many offending rows each finding carries.
const auditSampleLimit = 10

// Auditor scans the dictionary for policy violations: names outside the
// word-count policy, byte-identical embedding vectors across rows, wrong
// vector dimensionality, and (optionally) entries no longer referenced by
// any analysis. It only reports; deletion stays a separate, explicit
// administrative action.
type Auditor struct {
	store      TopicStore
	dimensions int
	logger     *logger.Logger
}

// NewAuditor creates a new Auditor.
// dimensions is the expected embedding length; zero disables that check.
func NewAuditor(store TopicStore, dimensions int, log *logger.Logger) *Auditor {
	return &Auditor{
		store:      store,
		dimensions: dimensions,
		logger:     log,
	}
}

// TopicSample is a compact row reference carried in audit findings.
type TopicSample struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"display_name"`
}

// DuplicateVectorGroup lists rows sharing one byte-identical vector.
type DuplicateVectorGroup struct {
	VectorHash string        `json:"vector_hash"`
	Topics     []TopicSample `json:"topics"`
}

// AuditReport summarizes one integrity scan.
type AuditReport struct {
	TotalTopics int64 `json:"total_topics"`

	WordCountViolations int           `json:"word_count_violations"`
	WordCountSamples    []TopicSample `json:"word_count_samples,omitempty"`

	DimensionViolations int           `json:"dimension_violations"`
	DimensionSamples    []TopicSample `json:"dimension_samples,omitempty"`

	DuplicateVectorRows   int                    `json:"duplicate_vector_rows"`
	DuplicateVectorGroups []DuplicateVectorGroup `json:"duplicate_vector_groups,omitempty"`

	// Orphans is only populated when the caller supplied the set of
	// topic IDs still referenced by analyses.
	OrphansChecked bool          `json:"orphans_checked"`
	Orphans        int           `json:"orphans"`
	OrphanSamples  []TopicSample `json:"orphan_samples,omitempty"`
}

// AuditOptions controls optional audit checks.
type AuditOptions struct {
	// ReferencedIDs is the set of canonical topic IDs still referenced by
	// at least one analysis. When nil, the orphan check is skipped; this
	// service does not own the analysis tables.
	ReferencedIDs []uint
}

// Audit runs a full integrity scan over the dictionary.
//
// Byte-identical vectors for different phrases are reported, never repaired:
// the embedding service may legitimately return the same vector for
// near-identical inputs, so this is a monitored anomaly rather than an error.
func (a *Auditor) Audit(ctx context.Context, opts *AuditOptions) (*AuditReport, error) {
	if opts == nil {
		opts = &AuditOptions{}
	}

	topics, err := a.store.ListAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list topics for audit: %w", err)
	}

	report := &AuditReport{TotalTopics: int64(len(topics))}

	byVector := make(map[string][]TopicSample)
	referenced := make(map[uint]struct{}, len(opts.ReferencedIDs))
	for _, id := range opts.ReferencedIDs {
		referenced[id] = struct{}{}
	}

	for _, topic := range topics {
		sample := TopicSample{ID: topic.ID, DisplayName: topic.DisplayName}

		if words := len(strings.Fields(topic.DisplayName)); words == 0 || words > maxTopicWords {
			report.WordCountViolations++
			if len(report.WordCountSamples) < auditSampleLimit {
				report.WordCountSamples = append(report.WordCountSamples, sample)
			}
		}

		if a.dimensions > 0 && len(topic.Embedding) != a.dimensions {
			report.DimensionViolations++
			if len(report.DimensionSamples) < auditSampleLimit {
				report.DimensionSamples = append(report.DimensionSamples, sample)
			}
		}

		if len(topic.Embedding) > 0 {
			hash := vectorHash(topic.Embedding)
			byVector[hash] = append(byVector[hash], sample)
		}

		if opts.ReferencedIDs != nil {
			if _, ok := referenced[topic.ID]; !ok {
				report.Orphans++
				if len(report.OrphanSamples) < auditSampleLimit {
					report.OrphanSamples = append(report.OrphanSamples, sample)
				}
			}
		}
	}
	report.OrphansChecked = opts.ReferencedIDs != nil

	for hash, group := range byVector {
		if len(group) < 2 {
			continue
		}
		report.DuplicateVectorRows += len(group)
		if len(report.DuplicateVectorGroups) < auditSampleLimit {
			report.DuplicateVectorGroups = append(report.DuplicateVectorGroups, DuplicateVectorGroup{
				VectorHash: hash,
				Topics:     group,
			})
		}
	}

	logger.With(logger.Fields{
		"total":                 report.TotalTopics,
		"word_count_violations": report.WordCountViolations,
		"dimension_violations":  report.DimensionViolations,
		"duplicate_vector_rows": report.DuplicateVectorRows,
		"orphans":               report.Orphans,
	}).Info(ctx, "Integrity audit completed")

	return report, nil
}

// vectorHash produces a stable digest of a vector's exact bit pattern.
func vectorHash(v domain.Vector) string {
	buf := make([]byte, 4*len(v))
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	sum := md5.Sum(buf)
	return hex.EncodeToString(sum[:])
}
