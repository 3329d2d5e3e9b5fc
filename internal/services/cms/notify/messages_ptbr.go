package notify

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	lang := language.BrazilianPortuguese

	message.SetString(lang, "notify.workflow_state.approved.subject", "A página \"%s\" foi aprovada")
	message.SetString(lang, "notify.workflow_state.approved.body", "A página \"%s\" foi aprovada em %s.")
	message.SetString(lang, "notify.workflow_state.rejected.subject", "A página \"%s\" foi rejeitada")
	message.SetString(lang, "notify.workflow_state.rejected.body", "A página \"%s\" foi rejeitada na etapa \"%s\" de %s.")
	message.SetString(lang, "notify.workflow_state.submitted.subject", "A página \"%s\" foi enviada para %s")
	message.SetString(lang, "notify.workflow_state.submitted.body", "A página \"%s\" foi enviada para %s por %s.")
	message.SetString(lang, "notify.task_state.submitted.subject", "A página \"%s\" foi enviada para aprovação na etapa de moderação \"%s\"")
	message.SetString(lang, "notify.task_state.submitted.body", "A página \"%s\" foi enviada para aprovação na etapa de moderação \"%s\".")
	message.SetString(lang, "notify.comment", "Comentário: %s")
	message.SetString(lang, "notify.link.edit", "Você pode editar a página aqui:")
	message.SetString(lang, "notify.link.preview", "Você pode pré-visualizar a página aqui:")
	message.SetString(lang, "notify.link.view", "Você pode ver a página aqui:")
	message.SetString(lang, "notify.footer.preferences", "Altere suas preferências de notificação aqui:")

	message.SetString(lang, "notify.moderation.submitted.subject", "A página \"%s\" foi enviada para moderação")
	message.SetString(lang, "notify.moderation.submitted.body", "A página \"%s\" (%s) foi enviada para moderação.")
	message.SetString(lang, "notify.moderation.approved.subject", "A página \"%s\" foi aprovada")
	message.SetString(lang, "notify.moderation.approved.body", "Sua página \"%s\" foi aprovada.")
	message.SetString(lang, "notify.moderation.rejected.subject", "A página \"%s\" foi rejeitada")
	message.SetString(lang, "notify.moderation.rejected.body", "Sua página \"%s\" foi rejeitada.")
}
