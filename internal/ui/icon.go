package ui

// 16x16 PNG, dark square with an orange diagonal cut mark.
var iconBytes = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff, 0x61, 0x00, 0x00, 0x00,
	0x59, 0x49, 0x44, 0x41, 0x54, 0x78, 0xda, 0x63, 0x60, 0xa0, 0x06, 0x50,
	0x52, 0xd2, 0xf8, 0x4f, 0x2c, 0xfe, 0x9f, 0x6b, 0x0b, 0xc7, 0x24, 0x1b,
	0x80, 0xac, 0x99, 0x64, 0x03, 0xd0, 0x35, 0x93, 0x64, 0x00, 0x36, 0xcd,
	0x20, 0x71, 0xa2, 0x0c, 0xc0, 0xa5, 0x99, 0x28, 0x03, 0xf0, 0x69, 0x26,
	0x68, 0x00, 0x21, 0xcd, 0x78, 0x0d, 0x20, 0x46, 0x33, 0x4e, 0x03, 0x88,
	0xd5, 0x8c, 0xd5, 0x00, 0x52, 0x34, 0x63, 0x18, 0x40, 0xaa, 0x66, 0x14,
	0x03, 0xc8, 0xd1, 0x8c, 0xd7, 0x00, 0x62, 0x93, 0x36, 0x56, 0x03, 0x48,
	0xc9, 0x58, 0x54, 0xc9, 0xc9, 0x00, 0x09, 0x71, 0x65, 0x3c, 0x9f, 0x1a,
	0xa6, 0xd8, 0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44, 0xae, 0x42,
	0x60, 0x82,
}
