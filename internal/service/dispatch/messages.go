package dispatch

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/phrazzld/teamtasks-api/internal/domain"
)

// commentExcerptLength is the number of characters of a comment quoted in a notification.
const commentExcerptLength = 50

const (
	titleNewTaskAssigned = "New Task Assigned"
	titleTaskAssigned    = "Task Assigned"
	titleTaskCompleted   = "Task Completed"
	titleNewComment      = "New Comment"
	titleTaskDueSoon     = "Task Due Soon"

	subjectNewComment = "New Comment on Task"
)

const dueDateLayout = "2006-01-02"

// excerpt returns the first commentExcerptLength characters of text followed by "...".
func excerpt(text string) string {
	if utf8.RuneCountInString(text) > commentExcerptLength {
		text = string([]rune(text)[:commentExcerptLength])
	}
	return text + "..."
}

func taskDetails(task *domain.Task) string {
	return fmt.Sprintf("Description: %s\n\nDue Date: %s\n\nPriority: %s",
		task.Description, task.DueDate.Format(dueDateLayout), task.Priority)
}

func byline(actorName string) string {
	if strings.TrimSpace(actorName) == "" {
		return ""
	}
	return " by " + actorName
}

func newTaskAssignedNotice(task *domain.Task) notice {
	msg := fmt.Sprintf("You have been assigned a new task: %s", task.Title)
	return notice{
		kind:    domain.NotificationTaskAssigned,
		title:   titleNewTaskAssigned,
		message: msg,
		subject: titleNewTaskAssigned,
		body: func(string) string {
			return msg + "\n\n" + taskDetails(task)
		},
	}
}

func taskAssignedNotice(task *domain.Task) notice {
	msg := fmt.Sprintf("You have been assigned to task: %s", task.Title)
	return notice{
		kind:    domain.NotificationTaskAssigned,
		title:   titleTaskAssigned,
		message: msg,
		subject: titleTaskAssigned,
		body: func(string) string {
			return msg + "\n\n" + taskDetails(task)
		},
	}
}

func taskCompletedNotice(task *domain.Task) notice {
	msg := fmt.Sprintf("Task \"%s\" has been marked as completed", task.Title)
	return notice{
		kind:    domain.NotificationTaskCompleted,
		title:   titleTaskCompleted,
		message: msg,
		subject: titleTaskCompleted,
		body: func(actorName string) string {
			return msg + byline(actorName)
		},
	}
}

func commentAddedNotice(task *domain.Task, comment *domain.Comment) notice {
	return notice{
		kind:    domain.NotificationCommentAdded,
		title:   titleNewComment,
		message: fmt.Sprintf("New comment on task \"%s\": %s", task.Title, excerpt(comment.Text)),
		subject: subjectNewComment,
		body: func(actorName string) string {
			body := fmt.Sprintf("New comment on task \"%s\": %s", task.Title, comment.Text)
			if actorName != "" {
				body += "\n\nBy: " + actorName
			}
			return body
		},
	}
}

func dueSoonNotice(task *domain.Task) notice {
	msg := fmt.Sprintf("Task \"%s\" is due on %s", task.Title, task.DueDate.Format(dueDateLayout))
	return notice{
		kind:    domain.NotificationDueDateApproaching,
		title:   titleTaskDueSoon,
		message: msg,
		subject: titleTaskDueSoon,
		body: func(string) string {
			return msg + "\n\n" + taskDetails(task)
		},
	}
}
