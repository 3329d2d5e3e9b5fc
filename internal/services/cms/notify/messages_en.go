package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.English

	message.SetString(lang, "notify.workflow_state.approved.subject", "The page \"%s\" has been approved")
	message.SetString(lang, "notify.workflow_state.approved.body", "The page \"%s\" has been approved in %s.")
	message.SetString(lang, "notify.workflow_state.rejected.subject", "The page \"%s\" has been rejected")
	message.SetString(lang, "notify.workflow_state.rejected.body", "The page \"%s\" has been rejected during stage \"%s\" of %s.")
	message.SetString(lang, "notify.workflow_state.submitted.subject", "The page \"%s\" has been submitted to %s")
	message.SetString(lang, "notify.workflow_state.submitted.body", "The page \"%s\" has been submitted to %s by %s.")
	message.SetString(lang, "notify.task_state.submitted.subject", "The page \"%s\" has been submitted for approval to moderation stage \"%s\"")
	message.SetString(lang, "notify.task_state.submitted.body", "The page \"%s\" has been submitted for approval to moderation stage \"%s\".")
	message.SetString(lang, "notify.comment", "Comment: %s")
	message.SetString(lang, "notify.link.edit", "You can edit the page here:")
	message.SetString(lang, "notify.link.preview", "You can preview the page here:")
	message.SetString(lang, "notify.link.view", "You can view the page here:")
	message.SetString(lang, "notify.footer.preferences", "Edit your notification preferences here:")

	message.SetString(lang, "notify.moderation.submitted.subject", "The page \"%s\" has been submitted for moderation")
	message.SetString(lang, "notify.moderation.submitted.body", "The page \"%s\" (%s) has been submitted for moderation.")
	message.SetString(lang, "notify.moderation.approved.subject", "The page \"%s\" has been approved")
	message.SetString(lang, "notify.moderation.approved.body", "Your page \"%s\" has been approved.")
	message.SetString(lang, "notify.moderation.rejected.subject", "The page \"%s\" has been rejected")
	message.SetString(lang, "notify.moderation.rejected.body", "Your page \"%s\" has been rejected.")
}
