package api

import (
	"html/template"
	"time"

	"github.com/stenstromen/todogate/model"
)

const dateLayout = "2006-01-02"

var funcs = template.FuncMap{
	"date": func(t time.Time) string {
		return t.Format(dateLayout)
	},
	"finishedOn": func(t *time.Time) string {
		if t == nil {
			return "Not yet"
		}
		return t.Format(dateLayout)
	},
	"overdue": func(it model.TodoItem, today time.Time) bool {
		return it.Overdue(today)
	},
}

var views = template.Must(template.New("views").Funcs(funcs).Parse(layout + pages))

const layout = `
{{define "head"}}<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>{{.Title}}</title>
    <style>
        body {
            font-family: Arial, sans-serif;
            margin: 0;
            background-color: #f4f4f4;
        }
        .center {
            display: flex;
            justify-content: center;
            align-items: center;
            min-height: 100vh;
        }
        .login-box {
            background: white;
            padding: 20px;
            border-radius: 8px;
            box-shadow: 0 4px 8px rgba(0,0,0,0.1);
            width: 300px;
        }
        .container {
            max-width: 960px;
            margin: 20px auto;
            background: white;
            padding: 20px;
            border-radius: 8px;
            box-shadow: 0 4px 8px rgba(0,0,0,0.1);
        }
        nav {
            background-color: #007bff;
            padding: 10px 20px;
            color: white;
        }
        nav a, nav span {
            color: white;
            margin-right: 15px;
            text-decoration: none;
        }
        nav form {
            display: inline;
        }
        form.stack {
            display: flex;
            flex-direction: column;
        }
        form.inline {
            display: inline-block;
        }
        label {
            margin-bottom: 5px;
        }
        input[type="text"], input[type="password"], input[type="email"], input[type="date"], input[type="search"] {
            padding: 10px;
            margin-bottom: 15px;
            border: 1px solid #ccc;
            border-radius: 4px;
        }
        button {
            background-color: #007bff;
            color: white;
            padding: 10px;
            border: none;
            border-radius: 4px;
            cursor: pointer;
        }
        button:hover {
            background-color: #0056b3;
        }
        button.danger {
            background-color: #dc3545;
        }
        .alert {
            padding: 10px;
            margin-bottom: 15px;
            border-radius: 4px;
        }
        .alert-error {
            background-color: #f8d7da;
            color: #721c24;
        }
        .alert-success {
            background-color: #d4edda;
            color: #155724;
        }
        .field-error {
            color: #dc3545;
            margin: -10px 0 10px;
            font-size: 0.9em;
        }
        table {
            width: 100%;
            border-collapse: collapse;
        }
        th, td {
            padding: 8px;
            border-bottom: 1px solid #ddd;
            text-align: left;
        }
        tr.overdue > td {
            color: #dc3545;
        }
        tr.done > td {
            text-decoration: line-through;
        }
        tr.done > td.actions {
            text-decoration: none;
        }
    </style>
</head>
<body>
{{end}}

{{define "nav"}}{{with .Login}}
<nav>
    <a href="/todo">To-do list</a>
    <a href="/todo/entry">New item</a>
    <a href="/account/totp">Two-factor</a>
    <a href="/account/cancel?login_id={{.ID}}">Cancel account</a>
    <span>{{.UserName}}</span>
    {{if $.Token}}
    <form action="/logout" method="post">
        <input type="hidden" name="token" value="{{$.Token}}">
        <button type="submit">Logout</button>
    </form>
    {{end}}
</nav>
{{end}}{{end}}

{{define "alerts"}}
{{with .Success}}{{with .msg}}<div class="alert alert-success">{{.}}</div>{{end}}{{end}}
{{with .Err}}{{with .msg}}<div class="alert alert-error">{{.}}</div>{{end}}{{end}}
{{end}}

{{define "foot"}}
</body>
</html>
{{end}}
`

const pages = `
{{define "register"}}{{template "head" .}}
<div class="center">
    <div class="login-box">
        <h2>Register</h2>
        {{template "alerts" .}}
        <form class="stack" action="/register" method="post">
            <input type="hidden" name="token" value="{{.Token}}">
            <label for="user_name">Name:</label>
            <input type="text" id="user_name" name="user_name" value="{{index .Fill "user_name"}}">
            {{with index .Err "user_name"}}<p class="field-error">{{.}}</p>{{end}}
            <label for="email">Email:</label>
            <input type="email" id="email" name="email" value="{{index .Fill "email"}}">
            {{with index .Err "email"}}<p class="field-error">{{.}}</p>{{end}}
            <label for="password">Password:</label>
            <input type="password" id="password" name="password">
            {{with index .Err "password"}}<p class="field-error">{{.}}</p>{{end}}
            <label for="password_confirm">Confirm password:</label>
            <input type="password" id="password_confirm" name="password_confirm">
            {{with index .Err "password_confirm"}}<p class="field-error">{{.}}</p>{{end}}
            <button type="submit">Register</button>
        </form>
        <p><a href="/login">Already registered? Log in</a></p>
    </div>
</div>
{{template "foot" .}}{{end}}

{{define "login"}}{{template "head" .}}
<div class="center">
    <div class="login-box">
        <h2>Login</h2>
        {{template "alerts" .}}
        <form class="stack" action="/login" method="post">
            <input type="hidden" name="token" value="{{.Token}}">
            <label for="email">Email:</label>
            <input type="email" id="email" name="email" value="{{index .Fill "email"}}">
            {{with index .Err "email"}}<p class="field-error">{{.}}</p>{{end}}
            <label for="password">Password:</label>
            <input type="password" id="password" name="password">
            {{with index .Err "password"}}<p class="field-error">{{.}}</p>{{end}}
            <button type="submit">Login</button>
        </form>
        <p><a href="/register">Create an account</a></p>
    </div>
</div>
{{template "foot" .}}{{end}}

{{define "otp"}}{{template "head" .}}
<div class="center">
    <div class="login-box">
        <h2>Enter OTP</h2>
        {{template "alerts" .}}
        <form class="stack" action="/login/otp" method="post">
            <input type="hidden" name="token" value="{{.Token}}">
            <label for="code">OTP:</label>
            <input type="text" id="code" name="code" inputmode="numeric" autocomplete="one-time-code">
            {{with index .Err "code"}}<p class="field-error">{{.}}</p>{{end}}
            <button type="submit">Verify</button>
        </form>
    </div>
</div>
{{template "foot" .}}{{end}}

{{define "error"}}{{template "head" .}}
{{template "nav" .}}
<div class="container">
    <h2>Error</h2>
    <div class="alert alert-error">{{with .Err}}{{with .msg}}{{.}}{{end}}{{else}}An unexpected error occurred. Please try again later.{{end}}</div>
    <p><a href="/">Back to the top page</a></p>
</div>
{{template "foot" .}}{{end}}

{{define "todo"}}{{template "head" .}}
{{template "nav" .}}
<div class="container">
    {{template "alerts" .}}
    {{range $field, $msg := .Err}}{{if ne $field "msg"}}<div class="alert alert-error">{{$msg}}</div>{{end}}{{end}}
    <form class="inline" action="/todo" method="get">
        <input type="search" name="search" placeholder="Search" value="{{.Search}}">
        <button type="submit">Search</button>
    </form>
    <table>
        <thead>
            <tr>
                <th>Title</th>
                <th>Assignee</th>
                <th>Registered</th>
                <th>Due</th>
                <th>Finished</th>
                <th>Actions</th>
            </tr>
        </thead>
        <tbody>
        {{range .Items}}
            <tr class="{{if .Finished}}done{{else if overdue . $.Today}}overdue{{end}}">
                <td>{{.Title}}</td>
                <td>{{.Assignee}}</td>
                <td>{{date .RegistrationDate}}</td>
                <td>{{date .ExpirationDate}}</td>
                <td>{{finishedOn .FinishedDate}}</td>
                <td class="actions">
                    {{if not .Finished}}
                    <form class="inline" action="/todo/complete" method="post">
                        <input type="hidden" name="token" value="{{$.Token}}">
                        <input type="hidden" name="item_id" value="{{.ID}}">
                        <button type="submit">Complete</button>
                    </form>
                    {{end}}
                    <form class="inline" action="/todo/edit" method="get">
                        <input type="hidden" name="item_id" value="{{.ID}}">
                        <button type="submit">Edit</button>
                    </form>
                    <form class="inline" action="/todo/delete" method="post">
                        <input type="hidden" name="token" value="{{$.Token}}">
                        <input type="hidden" name="item_id" value="{{.ID}}">
                        <button class="danger" type="submit">Delete</button>
                    </form>
                </td>
            </tr>
        {{else}}
            <tr><td colspan="6">No items.</td></tr>
        {{end}}
        </tbody>
    </table>
</div>
{{template "foot" .}}{{end}}

{{define "item"}}{{template "head" .}}
{{template "nav" .}}
<div class="container">
    <h2>{{.Title}}</h2>
    {{template "alerts" .}}
    <form class="stack" action="{{.Action}}" method="post">
        <input type="hidden" name="token" value="{{.Token}}">
        {{with index .Fill "item_id"}}<input type="hidden" name="item_id" value="{{.}}">{{end}}
        <label for="title">Title:</label>
        <input type="text" id="title" name="title" value="{{index .Fill "title"}}">
        {{with index .Err "title"}}<p class="field-error">{{.}}</p>{{end}}
        <label for="assignee">Assignee:</label>
        <input type="text" id="assignee" name="assignee" value="{{index .Fill "assignee"}}">
        {{with index .Err "assignee"}}<p class="field-error">{{.}}</p>{{end}}
        <label for="expiration_date">Due date:</label>
        <input type="date" id="expiration_date" name="expiration_date" value="{{index .Fill "expiration_date"}}">
        {{with index .Err "expiration_date"}}<p class="field-error">{{.}}</p>{{end}}
        <label><input type="checkbox" name="finished" value="1"{{if index .Fill "finished"}} checked{{end}}> Finished</label>
        {{with index .Err "finished"}}<p class="field-error">{{.}}</p>{{end}}
        <button type="submit">Save</button>
    </form>
</div>
{{template "foot" .}}{{end}}

{{define "cancel"}}{{template "head" .}}
{{template "nav" .}}
<div class="container">
    {{template "alerts" .}}
    <div class="alert alert-error">
        <p>{{.UserName}}, please confirm that you want to cancel your account. All of your to-do items will be deleted.</p>
        <form class="inline" action="/account/cancel" method="post">
            <input type="hidden" name="token" value="{{.Token}}">
            <input type="hidden" name="login_id" value="{{.LoginID}}">
            <button class="danger" type="submit">Cancel account</button>
        </form>
        <form class="inline" action="/todo" method="get">
            <button type="submit">Back</button>
        </form>
    </div>
</div>
{{template "foot" .}}{{end}}

{{define "totp"}}{{template "head" .}}
{{template "nav" .}}
<div class="container">
    <h2>Two-factor authentication</h2>
    {{template "alerts" .}}
    {{if .Enabled}}<p>Two-factor authentication is enabled. Scanning a new code replaces the current one.</p>{{end}}
    <p>Scan the code with your authenticator app, then enter the six digit code it shows.</p>
    <img src="{{.QR}}" alt="TOTP QR code" width="200" height="200">
    <p>Secret: <code>{{.Secret}}</code></p>
    <form class="stack" action="/account/totp" method="post">
        <input type="hidden" name="token" value="{{.Token}}">
        <label for="code">Code:</label>
        <input type="text" id="code" name="code" inputmode="numeric" autocomplete="one-time-code">
        {{with index .Err "code"}}<p class="field-error">{{.}}</p>{{end}}
        <button type="submit">Enable</button>
    </form>
</div>
{{template "foot" .}}{{end}}
`
