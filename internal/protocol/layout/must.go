package layout

// Must variants panic on error. They exist for static definition tables.

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func MustScalar(name, code string) *Scalar {
	return must(NewScalar(name, code))
}

func MustArray(name, code string, n int) *Scalar {
	return must(NewArray(name, code, n))
}

func MustPad(n int) *Pad {
	return must(NewPad(n))
}

func MustFlag(name string, start, stop int) Flag {
	return must(NewFlag(name, start, stop))
}

func MustBitField(name, code string, flags ...Flag) *BitField {
	return must(NewBitField(name, code, flags...))
}

func MustRepeatedBlock(name string, fields ...Field) *RepeatedBlock {
	return must(NewRepeatedBlock(name, fields...))
}

func MustMessage(id int, name string, fields ...Field) *Message {
	return must(NewMessage(id, name, fields...))
}

func MustClass(id int, name string, messages ...*Message) *Class {
	return must(NewClass(id, name, messages...))
}
