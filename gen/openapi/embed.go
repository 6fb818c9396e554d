// Package openapi отдаёт встроенную OpenAPI спецификацию сетевого API.
package openapi

import "embed"

//go:embed api.swagger.json
var specFS embed.FS

// GetSpec возвращает содержимое OpenAPI спецификации
func GetSpec() ([]byte, error) {
	return specFS.ReadFile("api.swagger.json")
}

// MustGetSpec возвращает спецификацию или паникует при ошибке чтения
func MustGetSpec() []byte {
	data, err := GetSpec()
	if err != nil {
		panic("failed to load OpenAPI spec: " + err.Error())
	}
	return data
}
