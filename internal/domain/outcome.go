package domain

type OutcomeKind string

const (
	OutcomePosted           OutcomeKind = "Posted"
	OutcomePending          OutcomeKind = "PendingVerification"
	OutcomeNotFollowing     OutcomeKind = "NotFollowing"
	OutcomeCommentsClosed   OutcomeKind = "CommentsClosed"
	OutcomeFormFieldMissing OutcomeKind = "FormFieldMissing"
	OutcomeRedirected       OutcomeKind = "Redirected"
	OutcomeError            OutcomeKind = "Error"
)

// Outcome is the terminal state of one submit+verify cycle.
// Which fields are set depends on Kind.
type Outcome struct {
	Kind    OutcomeKind
	Link    string
	Message string
	Field   string
	Reason  string
}

func Posted(link, message string) Outcome {
	return Outcome{Kind: OutcomePosted, Link: link, Message: message}
}

func PendingVerification(link, message string) Outcome {
	return Outcome{Kind: OutcomePending, Link: link, Message: message}
}

func NotFollowing(link string) Outcome {
	return Outcome{Kind: OutcomeNotFollowing, Link: link}
}

func CommentsClosed(link string) Outcome {
	return Outcome{Kind: OutcomeCommentsClosed, Link: link}
}

func FormFieldMissing(link, field string) Outcome {
	return Outcome{Kind: OutcomeFormFieldMissing, Link: link, Field: field}
}

func Redirected(actualURL string) Outcome {
	return Outcome{Kind: OutcomeRedirected, Link: actualURL}
}

func Failure(reason string) Outcome {
	return Outcome{Kind: OutcomeError, Reason: reason}
}

// Success is true for Posted and PendingVerification
func (o Outcome) Success() bool {
	return o.Kind == OutcomePosted || o.Kind == OutcomePending
}

func (o Outcome) String() string {
	switch o.Kind {
	case OutcomePosted:
		return "Posted"
	case OutcomePending:
		return "Pending verification"
	case OutcomeNotFollowing:
		return "Not following"
	case OutcomeCommentsClosed:
		return "Comments closed"
	case OutcomeFormFieldMissing:
		return "Missing field: " + o.Field
	case OutcomeRedirected:
		return "Redirected to " + o.Link
	case OutcomeError:
		return "Error: " + o.Reason
	}
	return string(o.Kind)
}
