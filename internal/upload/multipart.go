package upload

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// EncodeMultipart assembles a single-part multipart/form-data body around the
// raw file bytes and returns it with the generated boundary. The body is
// built directly over byte buffers so the wire bytes are exact:
//
//	--<boundary>\r\n
//	Content-Disposition: form-data; name="file"; filename="<name>"\r\n
//	Content-Type: <mime>\r\n
//	\r\n
//	<file bytes>
//	\r\n--<boundary>--\r\n
func EncodeMultipart(file []byte, fileName, mimeType string) ([]byte, string) {
	boundary := "----WebKitFormBoundary" + strings.ReplaceAll(uuid.NewString(), "-", "")

	var header bytes.Buffer
	fmt.Fprintf(&header, "--%s\r\n", boundary)
	fmt.Fprintf(&header, "Content-Disposition: form-data; name=%q; filename=%q\r\n", "file", fileName)
	fmt.Fprintf(&header, "Content-Type: %s\r\n\r\n", mimeType)

	trailer := fmt.Sprintf("\r\n--%s--\r\n", boundary)

	body := make([]byte, 0, header.Len()+len(file)+len(trailer))
	body = append(body, header.Bytes()...)
	body = append(body, file...)
	body = append(body, trailer...)
	return body, boundary
}
