// Package templates registers the Handlebars helpers available inside test
// plans: random identifiers, timestamps and fake data for prompt fixtures.
package templates

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/aymerick/raymond"
	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/uuid"
)

const (
	alphanumericChars = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	alphabeticChars   = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ"
	numericChars      = "0123456789"
	hexChars          = "0123456789abcdef"
)

var registerOnce sync.Once

// RegisterHelpers registers the custom Handlebars helpers. Safe to call more
// than once; raymond panics on duplicate registration.
func RegisterHelpers() {
	registerOnce.Do(registerHelpers)
}

func registerHelpers() {
	raymond.RegisterHelper("randomValue", func(options *raymond.Options) string {
		randomType := strings.ToUpper(options.HashStr("type"))
		if randomType == "" {
			randomType = "ALPHANUMERIC"
		}

		if randomType == "UUID" {
			return uuid.New().String()
		}

		length := 10
		if lengthVal := options.HashProp("length"); lengthVal != nil {
			length = toInt(lengthVal)
		}

		var result string
		switch randomType {
		case "ALPHABETIC":
			result = randomString(alphabeticChars, length)
		case "NUMERIC":
			result = randomString(numericChars, length)
		case "HEXADECIMAL":
			result = randomString(hexChars, length)
		default:
			result = randomString(alphanumericChars, length)
		}

		if raymond.IsTrue(options.HashProp("uppercase")) {
			result = strings.ToUpper(result)
		}
		return result
	})

	raymond.RegisterHelper("randomInt", func(options *raymond.Options) string {
		lower := 0
		upper := 100
		if lowerVal := options.HashProp("lower"); lowerVal != nil {
			lower = toInt(lowerVal)
		}
		if upperVal := options.HashProp("upper"); upperVal != nil {
			upper = toInt(upperVal)
		}
		if lower > upper {
			lower, upper = upper, lower
		}

		num, err := rand.Int(rand.Reader, big.NewInt(int64(upper-lower+1)))
		if err != nil {
			return "0"
		}
		return strconv.Itoa(int(num.Int64()) + lower)
	})

	raymond.RegisterHelper("now", func(options *raymond.Options) string {
		now := time.Now().UTC()

		switch format := options.HashStr("format"); format {
		case "epoch":
			return strconv.FormatInt(now.UnixMilli(), 10)
		case "unix":
			return strconv.FormatInt(now.Unix(), 10)
		case "":
			return now.Format(time.RFC3339)
		default:
			return now.Format(format)
		}
	})

	// faker generates fake data, keyed like "Name.full_name".
	raymond.RegisterHelper("faker", func(key string) string {
		r := gofakeit.New(0)

		category, sub, _ := strings.Cut(key, ".")
		switch category {
		case "Name":
			switch sub {
			case "first_name":
				return r.FirstName()
			case "last_name":
				return r.LastName()
			case "full_name":
				return r.Name()
			}
		case "Internet":
			switch sub {
			case "email":
				return r.Email()
			case "username":
				return r.Username()
			case "url":
				return r.URL()
			}
		case "Lorem":
			switch sub {
			case "word":
				return r.Word()
			case "sentence":
				return r.Sentence(5)
			case "paragraph":
				return r.Paragraph(1, 3, 5, " ")
			}
		case "Misc":
			switch sub {
			case "uuid":
				return r.UUID()
			case "boolean":
				return strconv.FormatBool(r.Bool())
			case "date":
				return r.Date().Format("2006-01-02")
			}
		}
		return ""
	})
}

// randomString draws length characters from charset using crypto/rand.
func randomString(charset string, length int) string {
	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(charset)))

	for i := 0; i < length; i++ {
		num, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return ""
		}
		result[i] = charset[num.Int64()]
	}
	return string(result)
}

func toInt(val any) int {
	switch v := val.(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		var result int
		fmt.Sscanf(v, "%d", &result)
		return result
	default:
		return 0
	}
}
