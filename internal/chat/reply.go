package chat

import "strings"

// Notices shown in the transcript as bot messages.
const (
	NoticeAirtableSetup       = "⚠️ Veuillez configurer votre token Airtable pour commencer."
	NoticeRecipesFailed       = "❌ Erreur lors du chargement des recettes."
	NoticeAirtableUnreachable = "❌ Impossible de se connecter à Airtable."
	NoticePlanningFailed      = "❌ Erreur lors du chargement du planning."
	NoticeTelegramSetup       = "⚠️ Configuration Telegram manquante. Veuillez configurer le bot."
	NoticeSendFailed          = "❌ Erreur lors de l'envoi du message."
	NoticeBotUnreachable      = "❌ Impossible de contacter le bot Telegram."
	NoticeRelayUnreachable    = "❌ Impossible de contacter le serveur."
	NoticeSettingsSaved       = "✅ Configuration sauvegardée avec succès!"
)

// Canned replies synthesized after a direct send.
const (
	ReplyRecipe   = "✅ J'ai bien reçu votre recette. Je la traite..."
	ReplyPlanning = "📅 Voici votre planning de la semaine actuelle."
	ReplyShopping = "🛒 Fonction liste de courses en cours de développement."
	ReplyDefault  = "J'ai bien reçu votre message. Tapez 'aide' pour voir les commandes disponibles."
)

// Reply is the outcome of classifying an outgoing message.
type Reply struct {
	Text string
	// ReloadRecipes is set when the message submitted a new recipe.
	ReloadRecipes bool
}

type replyRule struct {
	match func(lower string) bool
	reply Reply
}

// Rules are evaluated in order, the first match wins.
var replyRules = []replyRule{
	{
		match: func(s string) bool { return strings.HasPrefix(s, "recette:") },
		reply: Reply{Text: ReplyRecipe, ReloadRecipes: true},
	},
	{
		match: func(s string) bool { return strings.Contains(s, "planning") },
		reply: Reply{Text: ReplyPlanning},
	},
	{
		match: func(s string) bool { return strings.Contains(s, "courses") },
		reply: Reply{Text: ReplyShopping},
	},
}

// CannedReply picks the acknowledgement for text, matching case-insensitively.
func CannedReply(text string) Reply {
	lower := strings.ToLower(text)
	for _, r := range replyRules {
		if r.match(lower) {
			return r.reply
		}
	}
	return Reply{Text: ReplyDefault}
}

// IsRecipeSaved reports whether a bot message confirms that a recipe was
// stored, which means the recipe list is stale.
func IsRecipeSaved(text string) bool {
	return strings.Contains(text, "✅") && strings.Contains(text, "Recette sauvegardée")
}
