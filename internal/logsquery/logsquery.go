// Package logsquery runs CloudWatch Logs Insights queries whose result set
// is larger than the service's per-query row limit.
//
// A query that comes back with exactly Limit rows may have been truncated.
// The rest of the time range, starting at the last returned timestamp, is
// split in half and both halves are queried concurrently, recursively, until
// every sub-range returns fewer rows than the limit. Overlapping rows are
// removed using the @ptr field.
package logsquery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	cwltypes "github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"github.com/cenkalti/backoff/v5"
	"github.com/google/btree"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"

	"github.com/yairfalse/awsx/internal/waiter"
)

// MaxLimit is the largest number of rows a single Insights query returns.
const MaxLimit = 10000

// timestampLayout is how Insights renders @timestamp.
const timestampLayout = "2006-01-02 15:04:05.000"

// API is the subset of the CloudWatch Logs client used here.
type API interface {
	StartQuery(ctx context.Context, params *cloudwatchlogs.StartQueryInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.StartQueryOutput, error)
	GetQueryResults(ctx context.Context, params *cloudwatchlogs.GetQueryResultsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.GetQueryResultsOutput, error)
}

// Query describes one logical query over a time range. Insights works at
// one-second resolution, so Start and End are truncated to the second.
type Query struct {
	LogGroups   []string
	QueryString string
	Start       time.Time
	End         time.Time
	Limit       int32
}

// Record is one result row.
type Record struct {
	Timestamp time.Time
	Ptr       string
	Fields    map[string]string
}

func (r Record) key() string {
	if r.Ptr != "" {
		return r.Ptr
	}
	parts := make([]string, 0, len(r.Fields))
	for k, v := range r.Fields {
		parts = append(parts, k+"="+v)
	}
	sort.Strings(parts)
	return strings.Join(parts, "\x00")
}

// Stats summarizes one Run.
type Stats struct {
	Queries   int
	Splits    int
	Records   int
	Truncated bool
}

// Runner executes large queries.
type Runner struct {
	client       API
	concurrency  int
	pollInterval time.Duration
	queryTimeout time.Duration
	log          zerolog.Logger
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency bounds the number of in-flight Insights queries.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithPollInterval sets how often GetQueryResults is called.
func WithPollInterval(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.pollInterval = d
		}
	}
}

// WithQueryTimeout bounds how long one Insights query may run.
func WithQueryTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.queryTimeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log zerolog.Logger) Option {
	return func(r *Runner) { r.log = log }
}

// New creates a Runner.
func New(client API, opts ...Option) *Runner {
	r := &Runner{
		client:       client,
		concurrency:  5,
		pollInterval: time.Second,
		queryTimeout: 15 * time.Minute,
		log:          zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Validate checks q and fills defaults.
func (q *Query) Validate() error {
	if len(q.LogGroups) == 0 {
		return errors.New("at least one log group is required")
	}
	if strings.TrimSpace(q.QueryString) == "" {
		return errors.New("query string is required")
	}
	if q.Limit == 0 {
		q.Limit = MaxLimit
	}
	if q.Limit < 0 || q.Limit > MaxLimit {
		return fmt.Errorf("limit must be between 1 and %d (got %d)", MaxLimit, q.Limit)
	}
	q.Start = q.Start.UTC().Truncate(time.Second)
	q.End = q.End.UTC().Truncate(time.Second)
	if !q.End.After(q.Start) {
		return fmt.Errorf("end %s must be after start %s", q.End.Format(time.RFC3339), q.Start.Format(time.RFC3339))
	}
	sorted, err := sortsAscending(q.QueryString)
	if err != nil {
		return err
	}
	if !sorted {
		q.QueryString += " | sort @timestamp asc"
	}
	return nil
}

// sortsAscending reports whether the query already has a
// "sort @timestamp asc" command. Splitting resumes after the last returned row, so
// any other sort command is rejected.
func sortsAscending(query string) (bool, error) {
	found := false
	for _, cmd := range commands(query) {
		fields := strings.Fields(cmd)
		if len(fields) == 0 || !strings.EqualFold(fields[0], "sort") {
			continue
		}
		if len(fields) != 3 || fields[1] != "@timestamp" || !strings.EqualFold(fields[2], "asc") {
			return false, fmt.Errorf("unsupported sort %q: large queries must sort by @timestamp asc", strings.TrimSpace(cmd))
		}
		found = true
	}
	return found, nil
}

// commands splits an Insights query on the pipes that separate commands,
// ignoring pipes inside quoted strings and /regex/ literals.
func commands(query string) []string {
	var (
		cmds  []string
		start int
		quote rune
		regex bool
		prev  rune
	)
	for i, c := range query {
		switch {
		case quote != 0:
			if c == quote && prev != '\\' {
				quote = 0
			}
		case regex:
			if c == '/' && prev != '\\' {
				regex = false
			}
		case c == '"' || c == '\'' || c == '`':
			quote = c
		case c == '/' && opensRegex(query[start:i]):
			regex = true
		case c == '|':
			cmds = append(cmds, query[start:i])
			start = i + 1
		}
		prev = c
	}
	return append(cmds, query[start:])
}

// opensRegex reports whether a slash following text starts a regex literal
// rather than a division.
func opensRegex(text string) bool {
	text = strings.TrimRight(text, " \t\n")
	if text == "" {
		return true
	}
	lower := strings.ToLower(text)
	if strings.HasPrefix(strings.TrimSpace(lower), "parse") {
		return true
	}
	for _, suffix := range []string{"like", "=~", "(", ",", "filter"} {
		if strings.HasSuffix(lower, suffix) {
			return true
		}
	}
	return false
}

// Run executes q, splitting as needed, and returns every record ordered by
// timestamp.
func (r *Runner) Run(ctx context.Context, q Query) ([]Record, Stats, error) {
	if err := q.Validate(); err != nil {
		return nil, Stats{}, err
	}

	c := &collector{tree: btree.NewG[Record](32, lessRecord)}
	s := &search{
		runner: r,
		query:  q,
		sem:    semaphore.NewWeighted(int64(r.concurrency)),
		out:    c,
	}

	if err := s.rangeQuery(ctx, q.Start, q.End); err != nil {
		return nil, s.stats(c), err
	}

	records := make([]Record, 0, c.tree.Len())
	c.tree.Ascend(func(rec Record) bool {
		records = append(records, rec)
		return true
	})
	return records, s.stats(c), nil
}

func lessRecord(a, b Record) bool {
	if !a.Timestamp.Equal(b.Timestamp) {
		return a.Timestamp.Before(b.Timestamp)
	}
	return a.key() < b.key()
}

type collector struct {
	mu   sync.Mutex
	tree *btree.BTreeG[Record]
}

func (c *collector) add(records []Record) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, rec := range records {
		c.tree.ReplaceOrInsert(rec)
	}
}

type search struct {
	runner *Runner
	query  Query
	sem    *semaphore.Weighted
	out    *collector

	mu        sync.Mutex
	queries   int
	splits    int
	truncated bool
}

func (s *search) stats(c *collector) Stats {
	s.mu.Lock()
	defer s.mu.Unlock()
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{Queries: s.queries, Splits: s.splits, Records: c.tree.Len(), Truncated: s.truncated}
}

// rangeQuery queries [start, end] and recurses into the remainder when the
// result was full.
func (s *search) rangeQuery(ctx context.Context, start, end time.Time) error {
	records, err := s.runOne(ctx, start, end)
	if err != nil {
		return err
	}
	s.out.add(records)

	if len(records) < int(s.query.Limit) {
		return nil
	}

	next := records[len(records)-1].Timestamp.Truncate(time.Second)
	if !next.After(start) {
		// A full page inside a single second cannot be narrowed further.
		s.mu.Lock()
		s.truncated = true
		s.mu.Unlock()
		s.runner.log.Warn().
			Time("start", start).
			Int32("limit", s.query.Limit).
			Msg("more rows than the query limit within one second; results truncated")
		next = start.Add(time.Second)
	}
	if next.After(end) {
		return nil
	}

	span := end.Sub(next)
	if span < 2*time.Second {
		return s.rangeQuery(ctx, next, end)
	}

	mid := next.Add((span / 2).Truncate(time.Second))
	s.mu.Lock()
	s.splits++
	s.mu.Unlock()

	s.runner.log.Debug().
		Time("from", next).
		Time("mid", mid).
		Time("to", end).
		Msg("splitting query range")

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error { return s.rangeQuery(gctx, next, mid) })
	g.Go(func() error { return s.rangeQuery(gctx, mid, end) })
	return g.Wait()
}

// runOne runs a single Insights query while holding a concurrency slot.
func (s *search) runOne(ctx context.Context, start, end time.Time) ([]Record, error) {
	if err := s.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer s.sem.Release(1)

	s.mu.Lock()
	s.queries++
	s.mu.Unlock()

	id, err := s.runner.startQuery(ctx, s.query, start, end)
	if err != nil {
		return nil, err
	}
	return s.runner.awaitResults(ctx, id)
}

func (r *Runner) startQuery(ctx context.Context, q Query, start, end time.Time) (string, error) {
	input := &cloudwatchlogs.StartQueryInput{
		LogGroupNames: q.LogGroups,
		QueryString:   aws.String(q.QueryString),
		StartTime:     aws.Int64(start.Unix()),
		EndTime:       aws.Int64(end.Unix()),
		Limit:         aws.Int32(q.Limit),
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = r.pollInterval
	b.MaxInterval = 30 * r.pollInterval

	return backoff.Retry(ctx, func() (string, error) {
		out, err := r.client.StartQuery(ctx, input)
		if err != nil {
			var limitErr *cwltypes.LimitExceededException
			if errors.As(err, &limitErr) {
				r.log.Debug().Msg("too many concurrent queries, backing off")
				return "", err
			}
			return "", backoff.Permanent(fmt.Errorf("start query: %w", err))
		}
		return aws.ToString(out.QueryId), nil
	}, backoff.WithBackOff(b), backoff.WithMaxElapsedTime(0))
}

func (r *Runner) awaitResults(ctx context.Context, id string) ([]Record, error) {
	var results [][]cwltypes.ResultField

	_, err := waiter.Until(ctx, waiter.Options{
		Target: []string{string(cwltypes.QueryStatusComplete)},
		Failure: []string{
			string(cwltypes.QueryStatusFailed),
			string(cwltypes.QueryStatusCancelled),
			string(cwltypes.QueryStatusTimeout),
			string(cwltypes.QueryStatusUnknown),
		},
		Interval:    r.pollInterval,
		MaxInterval: r.pollInterval,
		Timeout:     r.queryTimeout,
	}, func(ctx context.Context) (string, error) {
		out, err := r.client.GetQueryResults(ctx, &cloudwatchlogs.GetQueryResultsInput{QueryId: aws.String(id)})
		if err != nil {
			return "", fmt.Errorf("get query results: %w", err)
		}
		results = out.Results
		return string(out.Status), nil
	})
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", id, err)
	}

	records := make([]Record, 0, len(results))
	for _, row := range results {
		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", id, err)
		}
		records = append(records, rec)
	}
	return records, nil
}

func parseRow(row []cwltypes.ResultField) (Record, error) {
	rec := Record{Fields: make(map[string]string, len(row))}
	for _, f := range row {
		name, value := aws.ToString(f.Field), aws.ToString(f.Value)
		switch name {
		case "@ptr":
			rec.Ptr = value
		case "@timestamp":
			ts, err := time.ParseInLocation(timestampLayout, value, time.UTC)
			if err != nil {
				return Record{}, fmt.Errorf("parse @timestamp %q: %w", value, err)
			}
			rec.Timestamp = ts
			rec.Fields[name] = value
		default:
			rec.Fields[name] = value
		}
	}
	if rec.Timestamp.IsZero() {
		return Record{}, errors.New("result row has no @timestamp; include it in the fields clause")
	}
	return rec, nil
}
