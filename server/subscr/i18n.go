package subscr

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Message keys. English text doubles as the key.
const (
	MsgUnsubscribed     = "Successfully unsubscribed!"
	MsgNotSubscribed    = "You do not seem subscribed to this topic, not with this email at least!"
	MsgUnsubscribeError = "There was an error while unsubscribing!"

	msgNotifyMe     = "Notify me of follow-up replies via email"
	msgNotifyAuthor = "Notify author of follow-up replies via email."

	msgUnsubscribeTitle = "Unsubscribe from topic notifications"
	msgBody             = "%[1]s wrote:\n\n%[2]s\n\nPost Link: %[3]s\n\n-----------\n\n" +
		"You are receiving this email because you subscribed to a forum topic.\n\n" +
		"To unsubscribe from notifications for this topic, %[4]sclick here%[5]s."
)

var supportedLanguages = []language.Tag{
	language.English,
	language.German,
	language.French,
	language.Italian,
	language.Spanish,
	language.Russian,
}

var langMatcher = language.NewMatcher(supportedLanguages)

var translations = map[language.Tag]map[string]string{
	language.German: {
		MsgUnsubscribed:     "Erfolgreich abgemeldet!",
		MsgNotSubscribed:    "Sie scheinen dieses Thema nicht abonniert zu haben, zumindest nicht mit dieser E-Mail-Adresse!",
		MsgUnsubscribeError: "Beim Abmelden ist ein Fehler aufgetreten!",
		msgNotifyMe:         "Benachrichtige mich per E-Mail über weitere Antworten",
		msgNotifyAuthor:     "Den Autor per E-Mail über weitere Antworten benachrichtigen.",
		msgUnsubscribeTitle: "Benachrichtigungen zu diesem Thema abbestellen",
		msgBody: "%[1]s schrieb:\n\n%[2]s\n\nLink zum Beitrag: %[3]s\n\n-----------\n\n" +
			"Sie erhalten diese E-Mail, weil Sie ein Forenthema abonniert haben.\n\n" +
			"Um Benachrichtigungen zu diesem Thema abzubestellen, %[4]sklicken Sie hier%[5]s.",
	},
	language.French: {
		MsgUnsubscribed:     "Désabonnement réussi !",
		MsgNotSubscribed:    "Vous ne semblez pas abonné à ce sujet, du moins pas avec cette adresse e-mail !",
		MsgUnsubscribeError: "Une erreur s'est produite lors du désabonnement !",
		msgNotifyMe:         "M'avertir des réponses suivantes par e-mail",
		msgNotifyAuthor:     "Avertir l'auteur des réponses suivantes par e-mail.",
		msgUnsubscribeTitle: "Se désabonner des notifications du sujet",
		msgBody: "%[1]s a écrit :\n\n%[2]s\n\nLien vers le message : %[3]s\n\n-----------\n\n" +
			"Vous recevez cet e-mail parce que vous êtes abonné à un sujet du forum.\n\n" +
			"Pour vous désabonner des notifications de ce sujet, %[4]scliquez ici%[5]s.",
	},
	language.Italian: {
		MsgUnsubscribed:     "Disiscrizione completata!",
		MsgNotSubscribed:    "Non sembri iscritto a questa discussione, almeno non con questo indirizzo email!",
		MsgUnsubscribeError: "Si è verificato un errore durante la disiscrizione!",
		msgNotifyMe:         "Avvisami delle risposte successive via email",
		msgNotifyAuthor:     "Avvisa l'autore delle risposte successive via email.",
		msgUnsubscribeTitle: "Annulla l'iscrizione alle notifiche della discussione",
		msgBody: "%[1]s ha scritto:\n\n%[2]s\n\nLink al messaggio: %[3]s\n\n-----------\n\n" +
			"Ricevi questa email perché sei iscritto a una discussione del forum.\n\n" +
			"Per annullare le notifiche di questa discussione, %[4]sclicca qui%[5]s.",
	},
	language.Spanish: {
		MsgUnsubscribed:     "¡Suscripción cancelada correctamente!",
		MsgNotSubscribed:    "¡No parece que estés suscrito a este tema, al menos no con este correo!",
		MsgUnsubscribeError: "¡Se produjo un error al cancelar la suscripción!",
		msgNotifyMe:         "Avisarme de nuevas respuestas por correo electrónico",
		msgNotifyAuthor:     "Avisar al autor de nuevas respuestas por correo electrónico.",
		msgUnsubscribeTitle: "Cancelar las notificaciones del tema",
		msgBody: "%[1]s escribió:\n\n%[2]s\n\nEnlace al mensaje: %[3]s\n\n-----------\n\n" +
			"Recibes este correo porque te suscribiste a un tema del foro.\n\n" +
			"Para dejar de recibir notificaciones de este tema, %[4]shaz clic aquí%[5]s.",
	},
	language.Russian: {
		MsgUnsubscribed:     "Вы успешно отписались!",
		MsgNotSubscribed:    "Похоже, вы не подписаны на эту тему, по крайней мере с этим адресом!",
		MsgUnsubscribeError: "При отписке произошла ошибка!",
		msgNotifyMe:         "Уведомлять меня о новых ответах по почте",
		msgNotifyAuthor:     "Уведомлять автора о новых ответах по почте.",
		msgUnsubscribeTitle: "Отписаться от уведомлений темы",
		msgBody: "%[1]s пишет:\n\n%[2]s\n\nСсылка на сообщение: %[3]s\n\n-----------\n\n" +
			"Вы получили это письмо, потому что подписались на тему форума.\n\n" +
			"Чтобы отписаться от уведомлений этой темы, %[4]sнажмите здесь%[5]s.",
	},
}

func init() {
	for tag, msgs := range translations {
		for key, text := range msgs {
			if err := message.SetString(tag, key, text); err != nil {
				panic("subscr: bad translation for " + tag.String() + ": " + err.Error())
			}
		}
	}
}

// MatchLanguage picks the best supported language for the value of the Accept-Language header.
// Falls back to fallback when nothing matches or the header is empty.
func MatchLanguage(accept string, fallback language.Tag) language.Tag {
	tags, _, err := language.ParseAcceptLanguage(accept)
	if err != nil || len(tags) == 0 {
		return fallback
	}
	_, idx, conf := langMatcher.Match(tags...)
	if conf == language.No {
		return fallback
	}
	return supportedLanguages[idx]
}

// ParseLanguage parses a BCP 47 tag such as "de" or "pt-BR". Unparseable tags yield English.
func ParseLanguage(tag string) language.Tag {
	if tag == "" {
		return language.English
	}
	t, err := language.Parse(tag)
	if err != nil {
		return language.English
	}
	return t
}

// Translate returns the localized text of the message key.
func Translate(lang language.Tag, key string, args ...any) string {
	return message.NewPrinter(lang).Sprintf(key, args...)
}
