package language

import "strings"

// WordClass groups function words relevant to line-break quality.
type WordClass int

const (
	Article WordClass = iota
	Preposition
	Conjunction
	Auxiliary
	Negation
	Determiner
	Particle
)

type wordSet map[string]struct{}

func set(words string) wordSet {
	out := make(wordSet)
	for _, w := range strings.Fields(words) {
		out[w] = struct{}{}
	}
	return out
}

var wordLists = map[string]map[WordClass]wordSet{
	"en": {
		Article:     set("a an the"),
		Preposition: set("about above across after against along among around at before behind below beneath beside between beyond by down during except for from in inside into like near of off on onto out outside over past since through throughout to toward towards under underneath until up upon with within without"),
		Conjunction: set("and but or nor so yet because although though while whereas if unless since when whenever where wherever that which who whom whose whether until after before once than"),
		Auxiliary:   set("am is are was were be been being have has had do does did will would shall should can could may might must"),
		Negation:    set("not no never cannot don't doesn't didn't won't wouldn't can't couldn't shouldn't isn't aren't wasn't weren't"),
		Determiner:  set("this that these those my your his her its our their some any each every few many much several such what whose all both either neither"),
		Particle:    set("up down out off in on over away back around through along"),
	},
	"es": {
		Article:     set("el la los las un una unos unas lo"),
		Preposition: set("a ante bajo con contra de desde durante en entre hacia hasta mediante para por según sin sobre tras"),
		Conjunction: set("y e o u pero sino aunque porque pues que si cuando mientras como donde ni"),
		Auxiliary:   set("he has ha hemos habéis han había habían es son era eran fue fueron está están estaba estaban"),
		Negation:    set("no nunca jamás tampoco ni"),
		Determiner:  set("este esta estos estas ese esa esos esas aquel aquella mi mis tu tus su sus nuestro nuestra algún alguna cada todo toda"),
	},
	"fr": {
		Article:     set("le la les un une des du"),
		Preposition: set("à après avant avec chez contre dans de depuis derrière devant en entre envers par parmi pendant pour sans sous sur vers"),
		Conjunction: set("et ou mais donc or ni car que quand lorsque puisque comme si parce"),
		Auxiliary:   set("ai as a avons avez ont suis es est sommes êtes sont était étaient"),
		Negation:    set("ne pas jamais rien personne plus"),
		Determiner:  set("ce cet cette ces mon ma mes ton ta tes son sa ses notre nos votre vos leur leurs chaque quelques tout toute tous toutes"),
	},
	"de": {
		Article:     set("der die das den dem des ein eine einen einem einer eines"),
		Preposition: set("an auf aus bei bis durch für gegen hinter in mit nach neben ohne seit über um unter von vor während wegen zu zwischen"),
		Conjunction: set("und oder aber denn sondern dass weil wenn als ob obwohl damit während bevor nachdem"),
		Auxiliary:   set("bin bist ist sind seid war waren habe hast hat haben habt hatte hatten werde wirst wird werden wurde wurden kann können muss müssen soll sollen will wollen"),
		Negation:    set("nicht kein keine keinen keinem keiner nie niemals"),
		Determiner:  set("dieser diese dieses mein meine dein deine sein seine ihr ihre unser unsere jeder jede jedes alle"),
		Particle:    set("an auf aus ein mit nach vor weg zu zurück"),
	},
	"it": {
		Article:     set("il lo la i gli le un uno una"),
		Preposition: set("a con da di in per su tra fra senza sopra sotto verso"),
		Conjunction: set("e ed o oppure ma però perché quando mentre se che come dove né"),
		Auxiliary:   set("ho hai ha abbiamo avete hanno sono sei è siamo siete era erano"),
		Negation:    set("non mai niente nessuno"),
		Determiner:  set("questo questa questi queste quel quella mio mia tuo tua suo sua nostro ogni alcuni"),
	},
	"pt": {
		Article:     set("o a os as um uma uns umas"),
		Preposition: set("a com contra de desde em entre para por sem sob sobre até após"),
		Conjunction: set("e ou mas porém porque quando enquanto se que como onde nem"),
		Auxiliary:   set("sou é somos são era eram foi foram estou está estão tenho tem temos têm"),
		Negation:    set("não nunca jamais nada nenhum"),
		Determiner:  set("este esta estes estas esse essa aquele aquela meu minha teu tua seu sua nosso cada todo toda"),
	},
	"nl": {
		Article:     set("de het een"),
		Preposition: set("aan achter bij door in met na naar naast om onder op over tot tegen tussen uit van voor zonder"),
		Conjunction: set("en of maar want dus omdat als dat toen terwijl hoewel"),
		Auxiliary:   set("ben bent is zijn was waren heb hebt heeft hebben had hadden zal zullen wil willen kan kunnen moet moeten"),
		Negation:    set("niet geen nooit niets"),
		Determiner:  set("deze dit die dat mijn jouw zijn haar ons onze hun elk elke alle"),
		Particle:    set("aan af in mee op over terug uit weg"),
	},
}

// IsWord reports whether token belongs to class for the language. Languages
// without lists use the English lists. Matching is case-insensitive and
// ignores surrounding punctuation.
func IsWord(code string, class WordClass, token string) bool {
	lists, ok := wordLists[ToISO2(code)]
	if !ok {
		lists = wordLists["en"]
	}
	words, ok := lists[class]
	if !ok {
		return false
	}
	_, found := words[normalizeToken(token)]
	return found
}

func normalizeToken(token string) string {
	return strings.ToLower(strings.Trim(token, ".,;:!?\"'()[]{}«»“”‘’¿¡…-—"))
}
