package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/entity"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/repository"
	"github.com/ressKim-io/ReviewSense/api-service/internal/domain/service"
	"github.com/ressKim-io/ReviewSense/api-service/internal/infrastructure/requestid"
)

// Endpoint identifies an orchestrated operation in events and metrics
type Endpoint string

const (
	EndpointPredict         Endpoint = "predict"
	EndpointPredictExport   Endpoint = "predict_export"
	EndpointMetrics         Endpoint = "metrics"
	EndpointPredictionsCSV  Endpoint = "metrics_predictions"
	EndpointConfusionMatrix Endpoint = "metrics_confusion_matrix"
	EndpointDatasetInfo     Endpoint = "dataset_info"
	EndpointModelInfo       Endpoint = "model_info"
)

// Rate limit tiers
const (
	TierDefault   = "default"
	TierInference = "inference"
)

// Cache keys
const (
	keyMetrics          = "metrics"
	keyValidationScores = "validation_scores"
	keyDatasetInfo      = "dataset_info"
	keyModelInfo        = "model_info"
)

// DefaultThreshold is used when the caller supplies none
const DefaultThreshold = 0.5

// PredictInput is either a JSONBody, a SingleText or a BatchFile
type PredictInput interface {
	isPredictInput()
}

// JSONBody is an undecoded {"text": "..."} request body
type JSONBody struct {
	Body io.Reader
}

// SingleText is one review to classify
type SingleText struct {
	Text string
}

// BatchFile is a CSV row stream with a text column. A nil File means no file was uploaded.
type BatchFile struct {
	File io.Reader
}

func (JSONBody) isPredictInput()   {}
func (SingleText) isPredictInput() {}
func (BatchFile) isPredictInput()  {}

// SinglePrediction is the result for one text
type SinglePrediction struct {
	Label       int              `json:"label"`
	Probability float64          `json:"probability"`
	Sentiment   entity.Sentiment `json:"sentiment"`
}

// PredictOutput holds exactly one of Single or Records
type PredictOutput struct {
	Single  *SinglePrediction
	Records []entity.BatchRecord
}

// ScoredReview is a validation review with its score and re-thresholded label
type ScoredReview struct {
	Text           string
	Label          int
	Probability    float64
	PredictedLabel int
}

type validationScores struct {
	reviews       []entity.LabeledReview
	probabilities []float64
	source        string
}

// Predictor classifies texts in input order
type Predictor interface {
	Predict(ctx context.Context, texts []string) ([]entity.Prediction, error)
}

// BatchProcessor classifies a CSV row stream
type BatchProcessor interface {
	Process(ctx context.Context, r io.Reader) ([]entity.BatchRecord, error)
}

// Limiter admits or rejects a client
type Limiter interface {
	Allow(ctx context.Context, clientKey string) (bool, error)
}

// RejectionObserver is told about every rate-limit rejection
type RejectionObserver interface {
	ObserveRejection(tier string)
}

// Cache stores computed values with a TTL, computing each missing key once
type Cache interface {
	GetOrCompute(ctx context.Context, key string, ttl time.Duration, compute func(context.Context) (any, error)) (any, error)
}

// Settings are the tunables of the serving usecase
type Settings struct {
	MaxTextLength int
	MetricsTTL    time.Duration
	InfoTTL       time.Duration
	SampleSize    int
	SampleSeed    int64
}

// Dependencies wires the serving usecase. Sink and Rejections are optional.
type Dependencies struct {
	Engine           Predictor
	Processor        BatchProcessor
	Dataset          repository.DatasetSource
	Model            service.ModelDescriber
	Cache            Cache
	DefaultLimiter   Limiter
	InferenceLimiter Limiter
	Rejections       RejectionObserver
	Sink             EventSink
	Logger           *zap.Logger
	Settings         Settings
}

// ServingUsecase defines the interface for prediction and evaluation
type ServingUsecase interface {
	Predict(ctx context.Context, client string, input PredictInput) (*PredictOutput, error)
	Export(ctx context.Context, client string, file io.Reader) ([]entity.BatchRecord, error)
	Metrics(ctx context.Context, client string, threshold float64) (*entity.MetricsSnapshot, error)
	ValidationPredictions(ctx context.Context, client string, threshold float64) ([]ScoredReview, error)
	ConfusionMatrix(ctx context.Context, client string, threshold float64) (*entity.MetricsSnapshot, error)
	DatasetInfo(ctx context.Context, client string) (*entity.DatasetInfo, error)
	ModelInfo(ctx context.Context, client string) (*entity.ModelInfo, error)
}

type servingUsecase struct {
	deps   Dependencies
	logger *zap.Logger
	now    func() time.Time
}

// NewServingUsecase creates a new serving usecase
func NewServingUsecase(deps Dependencies) ServingUsecase {
	if deps.Sink == nil {
		deps.Sink = nopSink{}
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Settings.MaxTextLength < 1 {
		deps.Settings.MaxTextLength = entity.MaxTextLength
	}
	return &servingUsecase{
		deps:   deps,
		logger: deps.Logger.With(zap.String("component", "orchestrator")),
		now:    time.Now,
	}
}

// run executes one orchestrated call: admission, then fn (validation and execution), then the event
func run[T any](ctx context.Context, u *servingUsecase, endpoint Endpoint, client string, tiers []string, fn func(context.Context) (T, error)) (T, error) {
	start := u.now()

	var result T
	err := u.admit(ctx, client, tiers)
	if err == nil {
		result, err = fn(ctx)
	}

	outcome := Outcome(err)
	event := entity.RequestEvent{
		Start:     start,
		Endpoint:  string(endpoint),
		Client:    client,
		RequestID: requestid.FromContext(ctx),
		Duration:  u.now().Sub(start),
		Outcome:   outcome,
	}
	u.deps.Sink.Record(event)

	if err != nil {
		if outcome == entity.OutcomeInternalError {
			u.logger.Error("request failed with internal error",
				zap.String("endpoint", string(endpoint)),
				zap.String("request_id", event.RequestID),
				zap.Error(err),
			)
		}
		var zero T
		return zero, err
	}
	return result, nil
}

func (u *servingUsecase) admit(ctx context.Context, client string, tiers []string) error {
	for _, tier := range tiers {
		limiter := u.limiter(tier)
		if limiter == nil {
			continue
		}
		ok, err := limiter.Allow(ctx, client)
		if err != nil {
			return fmt.Errorf("rate limiter %s: %w", tier, err)
		}
		if !ok {
			if u.deps.Rejections != nil {
				u.deps.Rejections.ObserveRejection(tier)
			}
			return fmt.Errorf("%w: %s tier", ErrRateLimitExceeded, tier)
		}
	}
	return nil
}

func (u *servingUsecase) limiter(tier string) Limiter {
	if tier == TierInference {
		return u.deps.InferenceLimiter
	}
	return u.deps.DefaultLimiter
}

var (
	defaultTiers   = []string{TierDefault}
	inferenceTiers = []string{TierDefault, TierInference}
)

func (u *servingUsecase) Predict(ctx context.Context, client string, input PredictInput) (*PredictOutput, error) {
	return run(ctx, u, EndpointPredict, client, inferenceTiers, func(ctx context.Context) (*PredictOutput, error) {
		if body, ok := input.(JSONBody); ok {
			text, err := decodeText(body.Body)
			if err != nil {
				return nil, err
			}
			input = SingleText{Text: text}
		}

		switch in := input.(type) {
		case SingleText:
			return u.predictText(ctx, in.Text)
		case BatchFile:
			if in.File == nil {
				return nil, ErrNoFile
			}
			records, err := u.deps.Processor.Process(ctx, in.File)
			if err != nil {
				return nil, err
			}
			return &PredictOutput{Records: records}, nil
		default:
			return nil, validationError("unsupported payload")
		}
	})
}

func (u *servingUsecase) predictText(ctx context.Context, text string) (*PredictOutput, error) {
	text = entity.TruncateText(text, u.deps.Settings.MaxTextLength)

	predictions, err := u.deps.Engine.Predict(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	p := predictions[0]

	return &PredictOutput{Single: &SinglePrediction{
		Label:       p.Label,
		Probability: p.Probability,
		Sentiment:   p.Sentiment(),
	}}, nil
}

func decodeText(body io.Reader) (string, error) {
	if body == nil {
		return "", validationError("request body must be a JSON object")
	}

	var payload map[string]json.RawMessage
	if err := json.NewDecoder(body).Decode(&payload); err != nil {
		var syntaxErr *json.SyntaxError
		var typeErr *json.UnmarshalTypeError
		if errors.As(err, &syntaxErr) || errors.As(err, &typeErr) ||
			errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return "", validationError("request body must be a JSON object")
		}
		return "", err
	}

	raw, ok := payload["text"]
	if !ok {
		return "", validationError("field 'text' is required")
	}
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return "", validationError("field 'text' must be a string")
	}
	text, ok := value.(string)
	if !ok {
		return "", validationError("field 'text' must be a string")
	}
	return text, nil
}

func (u *servingUsecase) Export(ctx context.Context, client string, file io.Reader) ([]entity.BatchRecord, error) {
	return run(ctx, u, EndpointPredictExport, client, inferenceTiers, func(ctx context.Context) ([]entity.BatchRecord, error) {
		if file == nil {
			return nil, ErrNoFile
		}
		return u.deps.Processor.Process(ctx, file)
	})
}

func (u *servingUsecase) Metrics(ctx context.Context, client string, threshold float64) (*entity.MetricsSnapshot, error) {
	return run(ctx, u, EndpointMetrics, client, defaultTiers, func(ctx context.Context) (*entity.MetricsSnapshot, error) {
		return u.metrics(ctx, threshold)
	})
}

func (u *servingUsecase) ConfusionMatrix(ctx context.Context, client string, threshold float64) (*entity.MetricsSnapshot, error) {
	return run(ctx, u, EndpointConfusionMatrix, client, defaultTiers, func(ctx context.Context) (*entity.MetricsSnapshot, error) {
		return u.metrics(ctx, threshold)
	})
}

func (u *servingUsecase) metrics(ctx context.Context, threshold float64) (*entity.MetricsSnapshot, error) {
	if err := validateThreshold(threshold); err != nil {
		return nil, err
	}

	key := keyMetrics + ":" + strconv.FormatFloat(threshold, 'f', -1, 64)
	return cached(ctx, u.deps.Cache, key, u.deps.Settings.MetricsTTL, func(ctx context.Context) (*entity.MetricsSnapshot, error) {
		scores, err := u.validationScores(ctx)
		if err != nil {
			return nil, err
		}
		labels := make([]int, len(scores.reviews))
		for i, r := range scores.reviews {
			labels[i] = r.Label
		}

		snapshot, err := entity.ComputeMetrics(labels, scores.probabilities, threshold)
		if err != nil {
			return nil, err
		}
		snapshot.Source = scores.source
		return &snapshot, nil
	})
}

func (u *servingUsecase) ValidationPredictions(ctx context.Context, client string, threshold float64) ([]ScoredReview, error) {
	return run(ctx, u, EndpointPredictionsCSV, client, defaultTiers, func(ctx context.Context) ([]ScoredReview, error) {
		if err := validateThreshold(threshold); err != nil {
			return nil, err
		}
		scores, err := u.validationScores(ctx)
		if err != nil {
			return nil, err
		}

		rows := make([]ScoredReview, len(scores.reviews))
		for i, r := range scores.reviews {
			p := scores.probabilities[i]
			rows[i] = ScoredReview{
				Text:           r.Text,
				Label:          r.Label,
				Probability:    p,
				PredictedLabel: entity.ThresholdLabel(p, threshold),
			}
		}
		return rows, nil
	})
}

// validationScores runs the classifier over the validation split once per metrics TTL
func (u *servingUsecase) validationScores(ctx context.Context) (*validationScores, error) {
	return cached(ctx, u.deps.Cache, keyValidationScores, u.deps.Settings.MetricsTTL, func(ctx context.Context) (*validationScores, error) {
		ds, err := u.deps.Dataset.Load(ctx, entity.SplitValidation)
		if err != nil {
			return nil, err
		}

		predictions, err := u.deps.Engine.Predict(ctx, ds.Texts())
		if err != nil {
			return nil, err
		}
		probs := make([]float64, len(predictions))
		for i, p := range predictions {
			probs[i] = p.Probability
		}

		u.logger.Info("validation set scored",
			zap.Int("samples", len(probs)),
			zap.String("source", ds.Source),
		)
		return &validationScores{reviews: ds.Reviews, probabilities: probs, source: ds.Source}, nil
	})
}

func validateThreshold(t float64) error {
	if math.IsNaN(t) || t < 0 || t > 1 {
		return validationError("threshold must be between 0 and 1")
	}
	return nil
}

func (u *servingUsecase) DatasetInfo(ctx context.Context, client string) (*entity.DatasetInfo, error) {
	return run(ctx, u, EndpointDatasetInfo, client, defaultTiers, func(ctx context.Context) (*entity.DatasetInfo, error) {
		return cached(ctx, u.deps.Cache, keyDatasetInfo, u.deps.Settings.InfoTTL, u.datasetInfo)
	})
}

func (u *servingUsecase) datasetInfo(ctx context.Context) (*entity.DatasetInfo, error) {
	var train *entity.Dataset
	var valCount, testCount int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ds, err := u.deps.Dataset.Load(gctx, entity.SplitTrain)
		if err != nil {
			return err
		}
		train = ds
		return nil
	})
	g.Go(func() error {
		n, err := u.optionalSplitSize(gctx, entity.SplitValidation)
		valCount = n
		return err
	})
	g.Go(func() error {
		n, err := u.optionalSplitSize(gctx, entity.SplitTest)
		testCount = n
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	trainCount := len(train.Reviews)
	return &entity.DatasetInfo{
		Stats:   entity.SummarizeReviews(train.Reviews),
		Samples: entity.SampleReviews(train.Reviews, u.deps.Settings.SampleSize, u.deps.Settings.SampleSeed),
		Statistics: entity.SplitStatistics{
			TotalSamples: trainCount + valCount + testCount,
			TrainSamples: trainCount,
			ValSamples:   valCount,
			TestSamples:  testCount,
		},
		Source: train.Source,
	}, nil
}

func (u *servingUsecase) optionalSplitSize(ctx context.Context, split entity.Split) (int, error) {
	ds, err := u.deps.Dataset.Load(ctx, split)
	if errors.Is(err, repository.ErrSplitNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return len(ds.Reviews), nil
}

func (u *servingUsecase) ModelInfo(ctx context.Context, client string) (*entity.ModelInfo, error) {
	return run(ctx, u, EndpointModelInfo, client, defaultTiers, func(ctx context.Context) (*entity.ModelInfo, error) {
		return cached(ctx, u.deps.Cache, keyModelInfo, u.deps.Settings.InfoTTL, u.deps.Model.Describe)
	})
}

func cached[V any](ctx context.Context, c Cache, key string, ttl time.Duration, compute func(context.Context) (V, error)) (V, error) {
	var zero V
	if c == nil {
		return compute(ctx)
	}

	v, err := c.GetOrCompute(ctx, key, ttl, func(ctx context.Context) (any, error) {
		return compute(ctx)
	})
	if err != nil {
		return zero, err
	}

	typed, ok := v.(V)
	if !ok {
		return zero, fmt.Errorf("cache entry %q holds %T", key, v)
	}
	return typed, nil
}
