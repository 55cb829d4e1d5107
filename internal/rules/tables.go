package rules

// Tables holds every tunable lookup the pipeline consults. Defaults() covers
// normal operation; analysts can override entries through a workbook (loader.go).
type Tables struct {
	FillerWords   []string
	NumberWords   map[string]int
	Vocabulary    map[string]string
	TopicKeywords map[string]string
	Findings      []FindingRule
	Analysis      AnalysisConfig
}

// FindingRule maps one aggregated metric threshold to a strength or concern.
// Rules are evaluated in order; Op is ">=" or "<".
type FindingRule struct {
	Metric string
	Op     string
	Value  float64
	Kind   string // "strength" or "concern"
	Label  string
}

// AnalysisConfig carries the tunable aggregation weights and thresholds.
type AnalysisConfig struct {
	RatioWeight         float64
	ScoreWeight         float64
	HesitationThreshold float64
	StressThreshold     float64
	DefaultScore        float64
}

// Metric names usable in FindingRule.Metric.
const (
	MetricClarity         = "clarity"
	MetricConfidence      = "confidence"
	MetricFluency         = "fluency"
	MetricProfessionalism = "professionalism"
	MetricSentimentScore  = "sentiment_score"
	MetricEnthusiasm      = "enthusiasm"
)

func Defaults() Tables {
	return Tables{
		FillerWords: []string{
			"uh", "um", "umm", "uhh", "err", "ah", "ahh",
			"like", "you know", "i mean", "basically", "actually",
			"sort of", "kind of",
		},
		NumberWords: map[string]int{
			"zero": 0, "one": 1, "two": 2, "three": 3, "four": 4,
			"five": 5, "six": 6, "seven": 7, "eight": 8, "nine": 9,
			"ten": 10, "eleven": 11, "twelve": 12, "thirteen": 13,
			"fourteen": 14, "fifteen": 15, "sixteen": 16, "seventeen": 17,
			"eighteen": 18, "nineteen": 19, "twenty": 20, "thirty": 30,
			"forty": 40, "fifty": 50, "sixty": 60, "seventy": 70,
			"eighty": 80, "ninety": 90, "hundred": 100, "thousand": 1000,
		},
		Vocabulary: map[string]string{
			"python":           "Python",
			"javascript":       "JavaScript",
			"java script":      "JavaScript",
			"typescript":       "TypeScript",
			"react":            "React",
			"react js":         "React",
			"angular":          "Angular",
			"vue":              "Vue",
			"node":             "Node.js",
			"node js":          "Node.js",
			"nodejs":           "Node.js",
			"golang":           "Go",
			"django":           "Django",
			"flask":            "Flask",
			"fastapi":          "FastAPI",
			"fast api":         "FastAPI",
			"sql":              "SQL",
			"mysql":            "MySQL",
			"postgresql":       "PostgreSQL",
			"postgres":         "PostgreSQL",
			"post gres":        "PostgreSQL",
			"mongodb":          "MongoDB",
			"mongo db":         "MongoDB",
			"redis":            "Redis",
			"docker":           "Docker",
			"kubernetes":       "Kubernetes",
			"k8s":              "Kubernetes",
			"aws":              "AWS",
			"azure":            "Azure",
			"gcp":              "GCP",
			"google cloud":     "GCP",
			"machine learning": "Machine Learning",
			"ml":               "Machine Learning",
			"deep learning":    "Deep Learning",
			"data science":     "Data Science",
			"devops":           "DevOps",
			"cicd":             "CI/CD",
			"ci cd":            "CI/CD",
			"api":              "API",
			"rest api":         "REST API",
			"restful":          "RESTful",
			"graphql":          "GraphQL",
			"git":              "Git",
			"github":           "GitHub",
			"gitlab":           "GitLab",
		},
		TopicKeywords: map[string]string{
			"experience": "background", "worked": "background", "project": "background",
			"salary": "compensation", "compensation": "compensation", "notice period": "compensation",
			"team": "collaboration", "conflict": "collaboration", "mentor": "collaboration",
			"design": "technical", "architecture": "technical", "algorithm": "technical",
			"database": "technical", "testing": "technical", "deploy": "technical",
			"culture": "company", "remote": "company", "benefits": "company",
		},
		Findings: []FindingRule{
			{Metric: MetricClarity, Op: ">=", Value: 80, Kind: "strength", Label: "Clear articulation"},
			{Metric: MetricConfidence, Op: ">=", Value: 80, Kind: "strength", Label: "High confidence"},
			{Metric: MetricFluency, Op: ">=", Value: 80, Kind: "strength", Label: "Fluent communication"},
			{Metric: MetricProfessionalism, Op: ">=", Value: 80, Kind: "strength", Label: "Professional demeanor"},
			{Metric: MetricSentimentScore, Op: ">=", Value: 75, Kind: "strength", Label: "Positive attitude"},
			{Metric: MetricClarity, Op: "<", Value: 50, Kind: "concern", Label: "Unclear communication"},
			{Metric: MetricConfidence, Op: "<", Value: 50, Kind: "concern", Label: "Low confidence level"},
			{Metric: MetricFluency, Op: "<", Value: 50, Kind: "concern", Label: "Hesitant delivery"},
			{Metric: MetricProfessionalism, Op: "<", Value: 50, Kind: "concern", Label: "Unprofessional tone"},
			{Metric: MetricSentimentScore, Op: "<", Value: 40, Kind: "concern", Label: "Negative overall sentiment"},
		},
		Analysis: AnalysisConfig{
			RatioWeight:         0.6,
			ScoreWeight:         0.4,
			HesitationThreshold: 0.20,
			StressThreshold:     0.30,
			DefaultScore:        50,
		},
	}
}

// Matches reports whether an averaged metric value satisfies the rule.
func (r FindingRule) Matches(value float64) bool {
	switch r.Op {
	case ">=":
		return value >= r.Value
	case "<":
		return value < r.Value
	}
	return false
}
