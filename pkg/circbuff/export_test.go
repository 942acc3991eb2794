package circbuff

var CheckPayloadLen = checkPayloadLen
