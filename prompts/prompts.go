package prompts

// Fixed instruction blocks shared by every deployment. Script text is spliced
// around them by Build.
const (
	// collectionGoal opens every question-asking template after the persona.
	collectionGoal = "Tu objetivo es recopilar respuestas estructuradas para las siguientes preguntas, " +
		"formulando cada una siempre con un preámbulo cálido y empático según las respuestas anteriores:\n\n"

	// collectionRules is the behavioral block of the primary collection stage.
	collectionRules = "\nHaz cada pregunta de una en una. " +
		"Nunca pongas texto después del preámbulo y las preguntas. " +
		"Nunca respondas por la persona. " +
		"Recibe al menos una respuesta básica para cada pregunta antes de continuar. " +
		"Si no estás seguro de lo que la persona quiso decir, vuelve a preguntar. " +
		"Nunca repitas preguntas que ya hiciste si no es la pregunta anterior. " +
		"Nunca reformules preguntas que ya hiciste si no es la pregunta anterior. " +
		"No pongas los números de pregunta. " +
		"Siempre pon el texto de las preguntas en letra negrita. " +
		"Manten los pronombres de la persona consistente con el género que te diga. " +
		"Sólo llama a la persona por su nombre en el preámbulo de la primera pregunta, después nunca vuelvas a mencionar su nombre. "

	// dimensionRules is the shorter block used for dimension follow-ups.
	// The language string sits in the middle of it, topic restriction at the end.
	dimensionRulesHead = "\nHaz cada pregunta de una en una. " +
		"No pongas los números de pregunta. " +
		"Siempre pon el texto de las preguntas en letra negrita. " +
		"Nunca pongas texto después del preámbulo y las preguntas. "
	dimensionRulesTail = "Recibe al menos una respuesta básica para cada pregunta antes de continuar. " +
		"Nunca repitas ni reformules preguntas anteriores. " +
		"Nunca respondas por la persona. " +
		"Si no estás seguro de lo que la persona quiso decir, vuelve a preguntar. "

	reflectGoal = "Tu objetivo es escuchar empáticamente a la persona abrir la indagación interna acerca de esa situación, " +
		"y darle la siguiente instrucción, " +
		"formulandola siempre con un preámbulo cálido y empático según la respuesta anterior:\n\n"
	reflectRulesHead = "\nNunca pongas texto después del preámbulo y la instrucción. "
	reflectRulesTail = "Recibe al menos una respuesta básica antes de dar la instrucción. " +
		"Nunca respondas por la persona. "
	reflectDone = "\n\nUna vez que hayas dado la instrucción y la persona haya escrito <Listo>"

	oneAnswer   = "\n\nUna vez que hayas recopilado la respuesta a la pregunta"
	manyAnswers = "\n\nUna vez que hayas recopilado las respuestas a las %d preguntas"

	neverRestart = ", nunca vuelvas a iniciar a preguntar desde el principio"
	endExactly   = ", termina inmediatamente la conversación escribiendo exactamente \"%s\".\n\n"
	endWordOnly  = ", termina inmediatamente la conversación escribiendo únicamente la palabra \"%s\".\n\n"

	// conversationSuffix is where memory and the new user turn are spliced in.
	conversationSuffix = "Conversación actual:\n{history}\nHuman: {input}\nAI:"

	extractionHead = "Eres un algoritmo experto de extracción de información. " +
		"Extrae únicamente la información relevante de las respuestas del humano en el texto. " +
		"Usa solamente las palabras y frases que contiene el texto. " +
		"Si no conoces el valor de un atributo que se te pide extraer, devuelve null.\n\n"
	extractionKeys      = "Vas a producir un JSON con las siguientes claves: %s.\n\n"
	extractionQuestions = "Estas corresponden a la(s) siguiente(s) pregunta(s):\n"
	extractionTail      = "\nMensaje hasta la fecha: {conversation_history}\n\n" +
		"Recuerda, solo extrae texto que esté en los mensajes de arriba y no lo cambies. " +
		"Responde únicamente con el objeto JSON."

	// AdaptationTemplate rewrites a narrative on request. Placeholders: scenario, input.
	AdaptationTemplate = "Eres un asistente servicial, ayudando a estudiantes a adaptar un escenario a su gusto. " +
		"El escenario original con el que vino este estudiante:\n\n" +
		"Escenario: {scenario}.\n\n" +
		"Su petición actual es {input}.\n\n" +
		"Sugiere una versión alternativa del escenario. Mantén el lenguaje y el contenido tan similares como sea posible, " +
		"cumpliendo con la petición del estudiante.\n\n" +
		"Devuelve tu respuesta como un archivo JSON con una sola entrada llamada 'new_scenario'."

	synthesisHead = "{persona}\n\n{one_shot}\n\n" +
		"Tu tarea:\nCrea un escenario basado en las siguientes respuestas:\n\n"
	synthesisPair = "Pregunta: %s\nRespuesta: {%s}\n"
	synthesisJSON = "Tu respuesta debe ser un archivo JSON con una sola entrada llamada 'output_scenario'."

	// mainTail closes the mode A template.
	mainTail = "\n{end_prompt}\n\n" + synthesisJSON

	// secondTail closes the mode B template with the first narrative as context.
	secondTail = "{end_prompt}\n\n" +
		"Un poco de contexto sobre la situación de esta persona:\n\n" +
		"< {context} >\n\nSé consistente con sus pronombres.\n\n" + synthesisJSON

	oneShotFormat = "Ejemplo:\n%s\nEl escenario basado en estas respuestas: \"%s\""
)
