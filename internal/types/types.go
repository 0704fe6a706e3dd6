package types

import "time"

type VideoRecord struct {
	VideoID           string           `json:"video_id"`
	URL               string           `json:"url"`
	Info              *VideoInfo       `json:"info_video,omitempty"`
	Audio             *AudioStage      `json:"audio,omitempty"`
	Transcript        *Transcript      `json:"transcricao,omitempty"`
	Analysis          *Analysis        `json:"analise,omitempty"`
	Downloaded        []DownloadedClip `json:"shorts_baixados,omitempty"`
	UltimaAtualizacao time.Time        `json:"ultima_atualizacao"`
}

type VideoInfo struct {
	Title       string  `json:"titulo"`
	Author      string  `json:"autor"`
	Duration    float64 `json:"duracao_segundos"`
	Thumbnail   string  `json:"url_thumbnail"`
	UploadDate  string  `json:"data_publicacao"`
	Description string  `json:"descricao"`
	Views       int64   `json:"visualizacoes"`
	VideoID     string  `json:"video_id"`
}

type AudioStage struct {
	Path      string `json:"caminho_arquivo"`
	SizeBytes int64  `json:"tamanho_bytes"`
}

type Transcript struct {
	Segments []Segment `json:"segmentos"`
	Text     string    `json:"texto"`
	Language string    `json:"idioma"`
	Duration float64   `json:"duracao_total"`
}

// Segment times are seconds from the start of the audio.
type Segment struct {
	Start float64 `json:"inicio"`
	End   float64 `json:"fim"`
	Text  string  `json:"texto"`
}

type Analysis struct {
	Highlights []Highlight `json:"sugestoes"`
	Total      int         `json:"total_sugestoes"`
	Model      string      `json:"modelo_ia"`
	Method     string      `json:"metodo"`
	RunID      string      `json:"execucao_id"`
	CreatedAt  time.Time   `json:"gerado_em"`
}

type Highlight struct {
	Title       string   `json:"titulo"`
	Start       float64  `json:"inicio_segundos"`
	End         float64  `json:"fim_segundos"`
	Duration    float64  `json:"duracao_segundos"`
	Description string   `json:"descricao"`
	Trigger     string   `json:"potencial_viral"`
	Hook        string   `json:"hook"`
	Tags        []string `json:"tags"`
}

type DownloadedClip struct {
	Path      string  `json:"caminho_arquivo"`
	Start     float64 `json:"inicio_segundos"`
	End       float64 `json:"fim_segundos"`
	Duration  float64 `json:"duracao_segundos"`
	Title     string  `json:"titulo"`
	Index     int     `json:"indice_sugestao"`
	SizeBytes int64   `json:"tamanho_bytes"`
	Subtitles string  `json:"legenda,omitempty"`
	PublicURL string  `json:"url_publica,omitempty"`
}

type IndexEntry struct {
	URL               string    `json:"url"`
	Title             string    `json:"titulo"`
	UltimaAtualizacao time.Time `json:"ultima_atualizacao"`
}

// Candidate is a raw proposal from one analysis window. Score is clamped to [0,100].
type Candidate struct {
	Title       string
	StartQuote  string
	EndQuote    string
	Summary     string
	Trigger     string
	Score       float64
	WindowStart float64
}

// Window is the half-open interval [Start, End) in seconds.
type Window struct {
	Index int
	Start float64
	End   float64
}

type Stage string

const (
	StageAbsent      Stage = "absent"
	StageMetadata    Stage = "metadata"
	StageAudio       Stage = "audio"
	StageTranscribed Stage = "transcribed"
	StageAnalyzed    Stage = "analyzed"
)

type StageState struct {
	Metadata    bool `json:"info_video"`
	Audio       bool `json:"audio"`
	Transcribed bool `json:"transcricao"`
	Analyzed    bool `json:"analise"`
	Shorts      bool `json:"shorts"`
}

// StateOf derives completion from the presence of each stage output.
func StateOf(r *VideoRecord) StageState {
	if r == nil {
		return StageState{}
	}
	return StageState{
		Metadata:    r.Info != nil,
		Audio:       r.Audio != nil && r.Audio.Path != "",
		Transcribed: r.Transcript != nil && len(r.Transcript.Segments) > 0,
		Analyzed:    r.Analysis != nil && len(r.Analysis.Highlights) > 0,
		Shorts:      len(r.Downloaded) > 0,
	}
}

// Current returns the highest contiguous completed stage.
func (s StageState) Current() Stage {
	switch {
	case !s.Metadata:
		return StageAbsent
	case !s.Audio:
		return StageMetadata
	case !s.Transcribed:
		return StageAudio
	case !s.Analyzed:
		return StageTranscribed
	default:
		return StageAnalyzed
	}
}

type LibraryEntry struct {
	VideoID           string     `json:"video_id"`
	URL               string     `json:"url"`
	Title             string     `json:"titulo"`
	Thumbnail         string     `json:"url_thumbnail"`
	UltimaAtualizacao time.Time  `json:"ultima_atualizacao"`
	State             StageState `json:"estado"`
}
