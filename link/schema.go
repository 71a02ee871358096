package link

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/pilacorp/go-context-sdk/common/errs"
	"github.com/pilacorp/go-context-sdk/common/model"
)

// secureContextSchema validates a context configuration before it is
// published into a DID document.
const secureContextSchema = `{
  "$schema": "http://json-schema.org/draft-07/schema#",
  "type": "object",
  "required": ["id", "publicKeys", "services"],
  "properties": {
    "id": {
      "type": "string",
      "pattern": "^0x[0-9a-fA-F]{64}$"
    },
    "publicKeys": {
      "type": "object",
      "required": ["signKey", "asymKey"],
      "properties": {
        "signKey": {"$ref": "#/definitions/publicKey"},
        "asymKey": {"$ref": "#/definitions/publicKey"}
      }
    },
    "services": {
      "type": "object",
      "required": ["databaseServer", "messageServer"],
      "properties": {
        "databaseServer": {"$ref": "#/definitions/service"},
        "messageServer": {"$ref": "#/definitions/service"},
        "storageServer": {"$ref": "#/definitions/service"},
        "notificationServer": {"$ref": "#/definitions/service"}
      }
    }
  },
  "definitions": {
    "publicKey": {
      "type": "object",
      "required": ["type", "publicKeyHex"],
      "properties": {
        "type": {"type": "string", "minLength": 1},
        "publicKeyHex": {"type": "string", "pattern": "^0x[0-9a-fA-F]{66}$"}
      }
    },
    "service": {
      "type": "object",
      "required": ["type", "endpointUri"],
      "properties": {
        "type": {"type": "string", "minLength": 1},
        "endpointUri": {"type": "string", "format": "uri"}
      }
    }
  }
}`

// ValidateConfig checks a context configuration against the published
// record schema.
func ValidateConfig(config *model.SecureContextConfig) error {
	if config == nil {
		return fmt.Errorf("%w: config is required", errs.ErrInvalidInput)
	}

	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(secureContextSchema),
		gojsonschema.NewGoLoader(config),
	)
	if err != nil {
		return fmt.Errorf("failed to validate context config: %w", err)
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}
		return fmt.Errorf("%w: %s", errs.ErrInvalidInput, strings.Join(details, "; "))
	}

	return nil
}
