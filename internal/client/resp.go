package client

import "strconv"

// encodeCommand renders a command as a protocol array of bulk strings:
//
//	*<1+len(args)>\r\n$<len>\r\n<name>\r\n$<len>\r\n<arg>\r\n...
func encodeCommand(name string, args ...string) []byte {
	buf := make([]byte, 0, 32+len(name))
	buf = append(buf, '*')
	buf = strconv.AppendInt(buf, int64(1+len(args)), 10)
	buf = append(buf, '\r', '\n')
	buf = appendBulk(buf, name)
	for _, arg := range args {
		buf = appendBulk(buf, arg)
	}
	return buf
}

func appendBulk(buf []byte, s string) []byte {
	buf = append(buf, '$')
	buf = strconv.AppendInt(buf, int64(len(s)), 10)
	buf = append(buf, '\r', '\n')
	buf = append(buf, s...)
	return append(buf, '\r', '\n')
}
