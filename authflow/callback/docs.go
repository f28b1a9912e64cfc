// Copyright (c) HashiCorp, Inc.
// SPDX-License-Identifier: MPL-2.0

/*
callback is a package that provides http handlers (in the form of
http.HandlerFunc) for starting an authflow.Flow login and for handling the
provider's redirect back to the application's callback path.
*/
package callback
