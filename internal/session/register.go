/*
 * Copyright 2024 MediScan Client Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package session

import "context"

// SignupRequest is the JSON body of the registration call.
type SignupRequest struct {
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// User is the created-user payload.
type User struct {
	ID       int64  `json:"id"`
	Name     string `json:"name"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Visits   int    `json:"visits"`
}

// RegistrationState is the outcome of a successful signup.
type RegistrationState int

const (
	// LoggedIn means signup and the follow-up login both succeeded.
	LoggedIn RegistrationState = iota + 1
	// SignupSucceededLoginFailed means the account exists but no session was established.
	SignupSucceededLoginFailed
)

func (s RegistrationState) String() string {
	switch s {
	case LoggedIn:
		return "LoggedIn"
	case SignupSucceededLoginFailed:
		return "SignupSucceededLoginFailed"
	default:
		return "Unknown"
	}
}

// ManualLoginMessage is shown when the account was created but auto-login failed.
const ManualLoginMessage = "Registration successful. Please log in."

// Registration is the result of Register.
type Registration struct {
	State      RegistrationState
	User       *User
	LoginError *Failure // set for SignupSucceededLoginFailed
}

// Message returns the text to show for the registration outcome.
func (r *Registration) Message() string {
	if r.State == SignupSucceededLoginFailed {
		return ManualLoginMessage
	}
	return "Registration successful."
}

// Register signs up and then logs in with the same credentials.
// A signup failure is returned as an error and no login is attempted.
// A login failure after a successful signup is not an error: it is reported
// as SignupSucceededLoginFailed so the caller can ask for a manual login.
func (c *Client) Register(ctx context.Context, username, email, password string) (*Registration, error) {
	user, err := c.Signup(ctx, username, email, password)
	if err != nil {
		return nil, err
	}

	ok, err := c.Login(ctx, username, password)
	if err != nil || !ok {
		loginErr := c.LastError()
		if loginErr == nil {
			loginErr = Classify(err, "Login failed")
		}
		c.logger.Warn("auto-login after signup failed", "username", username, "kind", loginErr.Kind)
		return &Registration{State: SignupSucceededLoginFailed, User: user, LoginError: loginErr}, nil
	}

	return &Registration{State: LoggedIn, User: user}, nil
}
