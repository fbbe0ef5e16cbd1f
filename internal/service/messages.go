package service

// User-facing texts. The communities using the button are Spanish speaking.
const (
	ButtonIdle    = "🚨 Enviar Alerta Roja"
	ButtonSending = "Enviando..."
	ButtonError   = "❌ Error"

	MsgWaiting       = "⏳ Esperando acción del usuario..."
	MsgReady         = "✅ Listo para enviar"
	MsgLoading       = "🔄 Cargando datos de la comunidad..."
	MsgSending       = "🔄 Enviando alerta..."
	MsgRosterError   = "❌ No se pudieron cargar los datos de la comunidad."
	MsgEmptyRoster   = "❌ La comunidad no tiene miembros registrados."
	MsgNotRegistered = "⚠️ No estás registrado en esta comunidad."

	MsgOutsideHost      = "❌ Este botón solo funciona dentro de Telegram."
	MsgNoChat           = "❌ Error: No se pudo determinar el chat. Por favor, contacta a un administrador."
	MsgNoCommunity      = "❌ No se especificó la comunidad en la URL."
	MsgMissingData      = "❌ Faltan datos necesarios"
	MsgNoValidLocation  = "❌ No se ha seleccionado una ubicación válida."
	MsgRealtimeFallback = "❌ No se pudo obtener ubicación en tiempo real. Usando tu ubicación registrada."
	MsgRealtimeFailed   = "❌ No se pudo obtener ubicación en tiempo real."
	MsgSent             = "✅ Alerta enviada correctamente."
	MsgSendError        = "❌ Error al enviar alerta."

	HintRealTime    = "📍 Usando ubicación en tiempo real"
	HintNoLocation  = "⚠️ Ubicación no disponible. Por favor, activa GPS."
	hintRegistered  = "📍 Tu dirección registrada: %s"
	statusMatched   = "📍 Usuario: %s - %s"
	statusFallback  = "📍 Usando ubicación predeterminada de %s"
	statusReadyWith = MsgReady + " (%s)"
)
