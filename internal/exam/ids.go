package exam

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// IDGenerator hands out identifiers for new exams, questions and options.
type IDGenerator interface {
	ExamID() string
	QuestionID() string
	OptionID() string
}

// TimeIDs produces ids of the form exam_<ms>, q_<ms>_<rand> and opt_<ms>_<rand>.
// The random part comes from a v4 UUID so ids stay unique across a whole course,
// not only within one exam.
type TimeIDs struct {
	Now func() time.Time
}

// DefaultIDs is the generator used when callers do not inject one.
var DefaultIDs IDGenerator = TimeIDs{}

func (g TimeIDs) now() time.Time {
	if g.Now != nil {
		return g.Now()
	}
	return time.Now()
}

func (g TimeIDs) ExamID() string {
	return fmt.Sprintf("exam_%d_%s", g.now().UnixMilli(), randomPart())
}

func (g TimeIDs) QuestionID() string {
	return fmt.Sprintf("q_%d_%s", g.now().UnixMilli(), randomPart())
}

func (g TimeIDs) OptionID() string {
	return fmt.Sprintf("opt_%d_%s", g.now().UnixMilli(), randomPart())
}

func randomPart() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")[:12]
}
