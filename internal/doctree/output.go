package doctree

import "time"

// OutlineEntry is one heading in the per-document JSON output.
type OutlineEntry struct {
	Level Level  `json:"level"`
	Text  string `json:"text"`
	Page  int    `json:"page"`
}

// OutlineOutput is the per-document JSON output.
type OutlineOutput struct {
	Title   string         `json:"title"`
	Outline []OutlineEntry `json:"outline"`
}

// Output converts the outline to its JSON form. Outline is never nil so an
// empty heading list encodes as [].
func (o Outline) Output() OutlineOutput {
	out := OutlineOutput{
		Title:   o.Title,
		Outline: make([]OutlineEntry, 0, len(o.Headings)),
	}
	for _, h := range o.Headings {
		out.Outline = append(out.Outline, OutlineEntry{Level: h.Level, Text: h.Text, Page: h.Page})
	}
	return out
}

// AnalysisMetadata describes the collection and query of a ranked output.
type AnalysisMetadata struct {
	InputDocuments      []string `json:"input_documents"`
	Persona             string   `json:"persona"`
	JobToBeDone         string   `json:"job_to_be_done"`
	ProcessingTimestamp string   `json:"processing_timestamp"`
}

// ExtractedSection is one ranked section in the JSON output.
type ExtractedSection struct {
	Document       string `json:"document"`
	SectionTitle   string `json:"section_title"`
	ImportanceRank int    `json:"importance_rank"`
	PageNumber     int    `json:"page_number"`
}

// SubsectionAnalysis carries the refined text of a ranked section.
type SubsectionAnalysis struct {
	Document    string `json:"document"`
	RefinedText string `json:"refined_text"`
	PageNumber  int    `json:"page_number"`
}

// AnalysisOutput is the ranked selection JSON output.
type AnalysisOutput struct {
	Metadata           AnalysisMetadata     `json:"metadata"`
	ExtractedSections  []ExtractedSection   `json:"extracted_sections"`
	SubsectionAnalysis []SubsectionAnalysis `json:"subsection_analysis"`
}

// NewAnalysisOutput assembles the ranked output in rank order.
func NewAnalysisOutput(docs []string, q Query, ranked []RankedSection, at time.Time) AnalysisOutput {
	if docs == nil {
		docs = []string{}
	}
	out := AnalysisOutput{
		Metadata: AnalysisMetadata{
			InputDocuments:      docs,
			Persona:             q.Persona,
			JobToBeDone:         q.JobToBeDone,
			ProcessingTimestamp: at.UTC().Format(time.RFC3339),
		},
		ExtractedSections:  make([]ExtractedSection, 0, len(ranked)),
		SubsectionAnalysis: make([]SubsectionAnalysis, 0, len(ranked)),
	}
	for _, r := range ranked {
		out.ExtractedSections = append(out.ExtractedSections, ExtractedSection{
			Document:       r.DocumentID,
			SectionTitle:   r.SectionTitle,
			ImportanceRank: r.ImportanceRank,
			PageNumber:     r.PageNumber,
		})
		out.SubsectionAnalysis = append(out.SubsectionAnalysis, SubsectionAnalysis{
			Document:    r.DocumentID,
			RefinedText: r.RefinedText,
			PageNumber:  r.PageNumber,
		})
	}
	return out
}
