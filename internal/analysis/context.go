package analysis

import "github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/utils"

// ExcerptRunes is how much of the job description reaches the suggestion prompt, in code points.
const ExcerptRunes = 500

// MatchContext is everything the suggestion generator sees about one request.
type MatchContext struct {
	Role                  string  `json:"role"`
	SemanticMatch         float64 `json:"semantic_match"`
	ResumeText            string  `json:"resume_text"`
	JobDescriptionExcerpt string  `json:"job_description"`
}

// BuildContext assembles a MatchContext. The found skills are accepted alongside the
// matcher output but are not part of the prompt.
func BuildContext(_ []string, similarity float64, role, jobDescription, resumeText string) MatchContext {
	return MatchContext{
		Role:                  role,
		SemanticMatch:         similarity,
		ResumeText:            resumeText,
		JobDescriptionExcerpt: utils.TruncateRunes(jobDescription, ExcerptRunes),
	}
}
